package evaluator_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/evaluator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, baseURL string) *evaluator.Client {
	t.Helper()

	cfg := &evaluator.Config{BaseURL: baseURL}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	return evaluator.New(cfg, testLogger())
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		input string
		want  evaluator.Decision
	}{
		{"Accept", evaluator.DecisionAccept},
		{"Accepted", evaluator.DecisionAccept},
		{"approve", evaluator.DecisionAccept},
		{"Decline", evaluator.DecisionDecline},
		{"Declined", evaluator.DecisionDecline},
		{"reject", evaluator.DecisionDecline},
		{"Escalate", evaluator.DecisionEscalate},
		{"Escalate to human", evaluator.DecisionEscalate},
		{"manual", evaluator.DecisionEscalate},
		{"", evaluator.DecisionUnknown},
		{"APPROVE-ISH", evaluator.DecisionUnknown},
		{"garbage", evaluator.DecisionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := evaluator.ParseDecision(tt.input); got != tt.want {
				t.Errorf("ParseDecision(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEvaluateSuccess(t *testing.T) {
	claimID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/ocr/evaluate" {
			t.Errorf("path = %s, want /v1/ocr/evaluate", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"claimId":"550e8400-e29b-41d4-a716-446655440000","evidenceUrl":"evidence/abc/report.pdf"}` {
			t.Errorf("unexpected request body: %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"decision": "Accept", "score": 0.93, "fields": {"amount": "120"}}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	verdict, err := client.Evaluate(context.Background(), claimID, "evidence/abc/report.pdf")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if verdict.Decision != evaluator.DecisionAccept {
		t.Errorf("decision = %v, want Accept", verdict.Decision)
	}
	if verdict.Score != 0.93 {
		t.Errorf("score = %v, want 0.93", verdict.Score)
	}
	if len(verdict.Raw) == 0 {
		t.Error("expected raw payload to be preserved")
	}
}

func TestEvaluateFencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("```json\n{\"decision\": \"Decline\", \"score\": 0.99}\n```"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	verdict, err := client.Evaluate(context.Background(), uuid.New(), "evidence/x/y.png")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if verdict.Decision != evaluator.DecisionDecline {
		t.Errorf("decision = %v, want Decline", verdict.Decision)
	}

	// Raw is persisted to a jsonb column; a fenced payload must come back
	// unwrapped so the insert cannot fail on invalid JSON.
	if !json.Valid(verdict.Raw) {
		t.Fatalf("raw payload is not valid JSON: %s", verdict.Raw)
	}

	var stored struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(verdict.Raw, &stored); err != nil {
		t.Fatalf("unmarshal raw payload: %v", err)
	}
	if stored.Score != 0.99 {
		t.Errorf("raw score = %v, want 0.99", stored.Score)
	}
}

func TestEvaluateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.Evaluate(context.Background(), uuid.New(), "evidence/x/y.pdf")
	if !errors.Is(err, evaluator.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestEvaluateUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newClient(t, server.URL)

	_, err := client.Evaluate(context.Background(), uuid.New(), "evidence/x/y.pdf")
	if !errors.Is(err, evaluator.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestEvaluateMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	_, err := client.Evaluate(context.Background(), uuid.New(), "evidence/x/y.pdf")
	if !errors.Is(err, evaluator.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &evaluator.Config{BaseURL: "http://evaluator.local"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Timeout != "20s" {
		t.Errorf("timeout = %s, want 20s", cfg.Timeout)
	}
	if cfg.Threshold != 0.8 {
		t.Errorf("threshold = %v, want 0.8", cfg.Threshold)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     evaluator.Config
		wantErr bool
	}{
		{"missing base url", evaluator.Config{}, true},
		{"invalid timeout", evaluator.Config{BaseURL: "http://x", Timeout: "soon"}, true},
		{"threshold above one", evaluator.Config{BaseURL: "http://x", Threshold: 1.5}, true},
		{"valid", evaluator.Config{BaseURL: "http://x", Timeout: "5s", Threshold: 0.7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}
