package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parasol-ins/parasol/internal/claims"
	"github.com/parasol-ins/parasol/pkg/lifecycle"
	"github.com/parasol-ins/parasol/pkg/middleware"
	"github.com/parasol-ins/parasol/pkg/routes"
	"github.com/parasol-ins/parasol/pkg/storage"
)

type mockStore struct {
	findFn     func(ctx context.Context, key string) (*storage.Metadata, error)
	downloadFn func(ctx context.Context, key string) (*storage.DownloadResult, error)
	listFn     func(ctx context.Context, prefix, marker string, maxResults int32) (*storage.ListResult, error)
}

func (m *mockStore) Start(lc *lifecycle.Coordinator) error { return nil }

func (m *mockStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	return nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error { return nil }

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) { return false, nil }

func (m *mockStore) Find(ctx context.Context, key string) (*storage.Metadata, error) {
	return m.findFn(ctx, key)
}

func (m *mockStore) Download(ctx context.Context, key string) (*storage.DownloadResult, error) {
	return m.downloadFn(ctx, key)
}

func (m *mockStore) List(ctx context.Context, prefix, marker string, maxResults int32) (*storage.ListResult, error) {
	return m.listFn(ctx, prefix, marker, maxResults)
}

type mockOwners struct {
	ownerFn func(ctx context.Context, key string) (string, error)
}

func (m *mockOwners) EvidenceOwner(ctx context.Context, key string) (string, error) {
	return m.ownerFn(ctx, key)
}

func storageTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupStorageMux registers the evidence routes behind bearer auth that
// trusts the raw token as the user id.
func setupStorageMux(store storage.System, owners evidenceOwners, operators []string) http.Handler {
	mux := http.NewServeMux()
	h := newStorageHandler(store, owners, storageTestLogger(), storage.MaxListCap, operators)
	routes.Register(mux, h.routes())
	return middleware.Auth(middleware.InsecureVerifier(), storageTestLogger())(mux)
}

func TestDownloadEvidenceByOwner(t *testing.T) {
	key := "evidence/550e8400-e29b-41d4-a716-446655440000/report.pdf"

	store := &mockStore{
		downloadFn: func(ctx context.Context, got string) (*storage.DownloadResult, error) {
			if got != key {
				t.Errorf("key = %s, want %s", got, key)
			}
			return &storage.DownloadResult{
				Body:          io.NopCloser(strings.NewReader("data")),
				ContentType:   "application/pdf",
				ContentLength: 4,
			}, nil
		},
	}
	owners := &mockOwners{
		ownerFn: func(ctx context.Context, got string) (string, error) {
			return "user-1", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/storage/download/"+key, nil)
	req.Header.Set("Authorization", "Bearer user-1")

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
	if rec.Body.String() != "data" {
		t.Errorf("body = %q, want data", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="report.pdf"` {
		t.Errorf("content disposition = %q", got)
	}
}

func TestDownloadEvidenceForeignOwner(t *testing.T) {
	store := &mockStore{
		downloadFn: func(ctx context.Context, key string) (*storage.DownloadResult, error) {
			t.Error("blob served for a foreign owner")
			return nil, storage.ErrNotFound
		},
	}
	owners := &mockOwners{
		ownerFn: func(ctx context.Context, key string) (string, error) {
			return "user-1", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/storage/download/evidence/abc/report.pdf", nil)
	req.Header.Set("Authorization", "Bearer user-2")

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, nil).ServeHTTP(rec, req)

	// Foreign evidence reads as absent, not forbidden.
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFindEvidenceUnknownKey(t *testing.T) {
	store := &mockStore{}
	owners := &mockOwners{
		ownerFn: func(ctx context.Context, key string) (string, error) {
			return "", claims.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/storage/evidence/abc/report.pdf", nil)
	req.Header.Set("Authorization", "Bearer user-1")

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFindEvidenceOperatorBypassesOwnership(t *testing.T) {
	store := &mockStore{
		findFn: func(ctx context.Context, key string) (*storage.Metadata, error) {
			return &storage.Metadata{Key: key, ContentType: "application/pdf"}, nil
		},
	}
	owners := &mockOwners{
		ownerFn: func(ctx context.Context, key string) (string, error) {
			t.Error("ownership resolved for an operator")
			return "", claims.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/storage/evidence/abc/report.pdf", nil)
	req.Header.Set("Authorization", "Bearer ops-1")

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, []string{"ops-1"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
}

func TestListEvidenceRequiresOperator(t *testing.T) {
	store := &mockStore{
		listFn: func(ctx context.Context, prefix, marker string, maxResults int32) (*storage.ListResult, error) {
			return &storage.ListResult{Items: []storage.Metadata{}}, nil
		},
	}
	owners := &mockOwners{}

	req := httptest.NewRequest(http.MethodGet, "/storage", nil)
	req.Header.Set("Authorization", "Bearer user-1")

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, []string{"ops-1"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/storage", nil)
	req.Header.Set("Authorization", "Bearer ops-1")

	rec = httptest.NewRecorder()
	setupStorageMux(store, owners, []string{"ops-1"}).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
}

func TestDownloadEvidenceUnauthorized(t *testing.T) {
	store := &mockStore{}
	owners := &mockOwners{}

	req := httptest.NewRequest(http.MethodGet, "/storage/download/evidence/abc/report.pdf", nil)

	rec := httptest.NewRecorder()
	setupStorageMux(store, owners, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
