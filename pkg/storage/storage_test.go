package storage_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/parasol-ins/parasol/pkg/storage"
)

func TestParseMaxResults(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int32
		wantErr bool
	}{
		{"empty defaults to limit", "", 500, false},
		{"within limit", "25", 25, false},
		{"at limit", "500", 500, false},
		{"clamped to limit", "10000", 500, false},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, true},
		{"not a number", "many", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := storage.ParseMaxResults(tt.input, storage.MaxListCap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMaxResults(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, storage.ErrInvalidMaxResults) {
				t.Errorf("error = %v, want ErrInvalidMaxResults", err)
			}
			if got != tt.want {
				t.Errorf("ParseMaxResults(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{storage.ErrEmptyKey, http.StatusBadRequest},
		{storage.ErrInvalidKey, http.StatusBadRequest},
		{storage.ErrInvalidMaxResults, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
