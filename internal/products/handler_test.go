package products_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/products"
	"github.com/parasol-ins/parasol/pkg/pagination"
	"github.com/parasol-ins/parasol/pkg/routes"
)

type mockSystem struct {
	listFn       func(ctx context.Context, page pagination.PageRequest, filters products.Filters) (*pagination.PageResult[products.Product], error)
	findFn       func(ctx context.Context, id uuid.UUID) (*products.Product, error)
	createFn     func(ctx context.Context, cmd products.CreateCommand) (*products.Product, error)
	updateFn     func(ctx context.Context, id uuid.UUID, cmd products.UpdateCommand) (*products.Product, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) error
	activateFn   func(ctx context.Context, id uuid.UUID) (*products.Product, error)
	deactivateFn func(ctx context.Context, id uuid.UUID) (*products.Product, error)
}

func (m *mockSystem) Handler() *products.Handler {
	return products.NewHandler(m, testLogger(), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
}

func (m *mockSystem) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters products.Filters,
) (*pagination.PageResult[products.Product], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*products.Product, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Create(ctx context.Context, cmd products.CreateCommand) (*products.Product, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(ctx context.Context, id uuid.UUID, cmd products.UpdateCommand) (*products.Product, error) {
	return m.updateFn(ctx, id, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Activate(ctx context.Context, id uuid.UUID) (*products.Product, error) {
	return m.activateFn(ctx, id)
}

func (m *mockSystem) Deactivate(ctx context.Context, id uuid.UUID) (*products.Product, error) {
	return m.deactivateFn(ctx, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMux(sys products.System) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	return mux
}

func sampleProduct() *products.Product {
	return &products.Product{
		ID:               uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Name:             "Crop Shield",
		Category:         "agriculture",
		PremiumDrops:     1000000,
		PayoutDrops:      5000000,
		ShortDescription: "Parametric drought cover",
		Active:           true,
		CreatedAt:        time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func TestListProducts(t *testing.T) {
	sys := &mockSystem{
		listFn: func(ctx context.Context, page pagination.PageRequest, filters products.Filters) (*pagination.PageResult[products.Product], error) {
			if filters.Active == nil || !*filters.Active {
				t.Errorf("active filter = %v, want true", filters.Active)
			}
			result := pagination.NewPageResult([]products.Product{*sampleProduct()}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/products?active=true", nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var result pagination.PageResult[products.Product]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("total = %d, want 1", result.Total)
	}
}

func TestFindProduct(t *testing.T) {
	product := sampleProduct()

	sys := &mockSystem{
		findFn: func(ctx context.Context, id uuid.UUID) (*products.Product, error) {
			if id != product.ID {
				t.Errorf("id = %s, want %s", id, product.ID)
			}
			return product, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/products/"+product.ID.String(), nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
}

func TestFindProductNotFound(t *testing.T) {
	sys := &mockSystem{
		findFn: func(ctx context.Context, id uuid.UUID) (*products.Product, error) {
			return nil, products.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/products/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFindProductBadID(t *testing.T) {
	sys := &mockSystem{}

	req := httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateProduct(t *testing.T) {
	product := sampleProduct()

	sys := &mockSystem{
		createFn: func(ctx context.Context, cmd products.CreateCommand) (*products.Product, error) {
			if cmd.Name != "Crop Shield" {
				t.Errorf("name = %q, want Crop Shield", cmd.Name)
			}
			if cmd.PayoutDrops != 5000000 {
				t.Errorf("payout = %d, want 5000000", cmd.PayoutDrops)
			}
			return product, nil
		},
	}

	body := bytes.NewBufferString(`{
		"name": "Crop Shield",
		"category": "agriculture",
		"premium_drops": "1000000",
		"payout_drops": "5000000"
	}`)

	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}
}

func TestCreateProductInvalid(t *testing.T) {
	sys := &mockSystem{
		createFn: func(ctx context.Context, cmd products.CreateCommand) (*products.Product, error) {
			return nil, products.ErrInvalidPayout
		},
	}

	body := bytes.NewBufferString(`{"name": "Broken", "payout_drops": "0"}`)
	req := httptest.NewRequest(http.MethodPost, "/products", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDeleteProduct(t *testing.T) {
	sys := &mockSystem{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/products/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestDeactivateProduct(t *testing.T) {
	product := sampleProduct()
	product.Active = false

	sys := &mockSystem{
		deactivateFn: func(ctx context.Context, id uuid.UUID) (*products.Product, error) {
			return product, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/products/"+product.ID.String()+"/deactivate", nil)
	rec := httptest.NewRecorder()
	setupMux(sys).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var got products.Product
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Active {
		t.Error("expected deactivated product")
	}
}
