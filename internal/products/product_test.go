package products_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/parasol-ins/parasol/internal/products"
)

func TestCreateCommandValidate(t *testing.T) {
	valid := products.CreateCommand{
		Name:         "Crop Shield",
		Category:     "agriculture",
		PremiumDrops: 1000000,
		PayoutDrops:  5000000,
	}

	tests := []struct {
		name    string
		mutate  func(*products.CreateCommand)
		wantErr error
	}{
		{"valid", func(c *products.CreateCommand) {}, nil},
		{"free premium", func(c *products.CreateCommand) { c.PremiumDrops = 0 }, nil},
		{"missing name", func(c *products.CreateCommand) { c.Name = "" }, products.ErrNameRequired},
		{"zero payout", func(c *products.CreateCommand) { c.PayoutDrops = 0 }, products.ErrInvalidPayout},
		{"negative payout", func(c *products.CreateCommand) { c.PayoutDrops = -1 }, products.ErrInvalidPayout},
		{"negative premium", func(c *products.CreateCommand) { c.PremiumDrops = -1 }, products.ErrInvalidPremium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mutate(&cmd)

			if err := cmd.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateCommandValidate(t *testing.T) {
	cmd := products.UpdateCommand{Name: "Crop Shield", PayoutDrops: 0}
	if err := cmd.Validate(); !errors.Is(err, products.ErrInvalidPayout) {
		t.Errorf("Validate() error = %v, want ErrInvalidPayout", err)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{products.ErrNotFound, http.StatusNotFound},
		{products.ErrDuplicate, http.StatusConflict},
		{products.ErrNameRequired, http.StatusBadRequest},
		{products.ErrInvalidPayout, http.StatusBadRequest},
		{products.ErrInvalidPremium, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := products.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	f := products.FiltersFromQuery(map[string][]string{
		"category": {"agriculture"},
		"active":   {"true"},
	})

	if f.Category == nil || *f.Category != "agriculture" {
		t.Errorf("category filter = %v, want agriculture", f.Category)
	}
	if f.Active == nil || !*f.Active {
		t.Errorf("active filter = %v, want true", f.Active)
	}

	empty := products.FiltersFromQuery(map[string][]string{"active": {"maybe"}})
	if empty.Category != nil || empty.Active != nil {
		t.Errorf("expected empty filters, got %+v", empty)
	}
}
