package escrow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/parasol-ins/parasol/internal/escrow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, baseURL, apiKey string) *escrow.Client {
	t.Helper()

	cfg := &escrow.Config{BaseURL: baseURL, APIKey: apiKey}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	return escrow.New(cfg, testLogger())
}

func TestCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrow/create" {
			t.Errorf("path = %s, want /escrow/create", r.URL.Path)
		}
		if got := r.URL.Query().Get("amount_drops"); got != "5000000" {
			t.Errorf("amount_drops = %s, want 5000000", got)
		}
		if got := r.Header.Get("X-Session-Token"); got != "session-abc" {
			t.Errorf("session header = %s, want session-abc", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gateway-key" {
			t.Errorf("authorization = %s, want Bearer gateway-key", got)
		}

		w.Write([]byte(`{"escrow_id": "ESC-1"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "gateway-key")

	escrowID, err := client.Create(context.Background(), "session-abc", 5000000)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if escrowID != "ESC-1" {
		t.Errorf("escrow id = %s, want ESC-1", escrowID)
	}
}

func TestCreateMissingEscrowID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	_, err := client.Create(context.Background(), "", 100)
	if !errors.Is(err, escrow.ErrOperationFailed) {
		t.Errorf("error = %v, want ErrOperationFailed", err)
	}
}

func TestFinish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrow/finish" {
			t.Errorf("path = %s, want /escrow/finish", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"escrow_id":"ESC-1"}` {
			t.Errorf("unexpected request body: %s", body)
		}

		w.Write([]byte(`{"escrow_id": "ESC-1", "finished": true, "tx_hash": "ABC123"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	receipt, err := client.Finish(context.Background(), "session", "ESC-1")
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if receipt.TxHash != "ABC123" {
		t.Errorf("tx hash = %s, want ABC123", receipt.TxHash)
	}
	if !receipt.Finished {
		t.Error("expected finished receipt")
	}
}

func TestFinishLatched(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"escrow_id": "ESC-1", "finished": true, "tx_hash": "ABC123"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	first, err := client.Finish(context.Background(), "session", "ESC-1")
	if err != nil {
		t.Fatalf("first Finish() error = %v", err)
	}

	second, err := client.Finish(context.Background(), "session", "ESC-1")
	if err != nil {
		t.Fatalf("second Finish() error = %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("gateway calls = %d, want 1", calls.Load())
	}
	if first.TxHash != second.TxHash {
		t.Errorf("latched receipt mismatch: %s vs %s", first.TxHash, second.TxHash)
	}
}

func TestFinishConcurrent(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Hold the first finish in flight so a racing caller has to share it.
		<-release
		w.Write([]byte(`{"escrow_id": "ESC-1", "finished": true, "tx_hash": "ABC123"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	var wg sync.WaitGroup
	receipts := make([]*escrow.Receipt, 2)
	errs := make([]error, 2)

	for i := range receipts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipts[i], errs[i] = client.Finish(context.Background(), "session", "ESC-1")
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range receipts {
		if errs[i] != nil {
			t.Fatalf("Finish() %d error = %v", i, errs[i])
		}
		if receipts[i].TxHash != "ABC123" {
			t.Errorf("Finish() %d tx hash = %s, want ABC123", i, receipts[i].TxHash)
		}
	}

	if calls.Load() != 1 {
		t.Errorf("gateway calls = %d, want 1", calls.Load())
	}
}

func TestFinishUnfinished(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"escrow_id": "ESC-1", "finished": false, "tx_hash": ""}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	_, err := client.Finish(context.Background(), "session", "ESC-1")
	if !errors.Is(err, escrow.ErrOperationFailed) {
		t.Errorf("error = %v, want ErrOperationFailed", err)
	}

	var opErr *escrow.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error = %T, want *OperationError", err)
	}
	if opErr.EscrowID != "ESC-1" || opErr.Op != "finish" {
		t.Errorf("operation error = %+v, want escrow ESC-1 op finish", opErr)
	}
}

func TestFinishGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": "ledger offline"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	_, err := client.Finish(context.Background(), "session", "ESC-1")
	if !errors.Is(err, escrow.ErrOperationFailed) {
		t.Errorf("error = %v, want ErrOperationFailed", err)
	}
}

func TestFinishMissingEscrowID(t *testing.T) {
	client := newClient(t, "http://unused.local", "")

	_, err := client.Finish(context.Background(), "session", "")
	if !errors.Is(err, escrow.ErrMissingEscrowID) {
		t.Errorf("error = %v, want ErrMissingEscrowID", err)
	}
}

func TestCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrow/cancel" {
			t.Errorf("path = %s, want /escrow/cancel", r.URL.Path)
		}
		w.Write([]byte(`{"escrow_id": "ESC-2", "finished": false, "tx_hash": "DEF456"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, "")

	receipt, err := client.Cancel(context.Background(), "session", "ESC-2")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if receipt.EscrowID != "ESC-2" {
		t.Errorf("escrow id = %s, want ESC-2", receipt.EscrowID)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &escrow.Config{BaseURL: "http://gateway.local"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Timeout != "30s" {
		t.Errorf("timeout = %s, want 30s", cfg.Timeout)
	}
}
