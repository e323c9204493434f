// Package products implements the insurance product catalog for Parasol.
// It provides types, data access, and HTTP handlers for managing the
// parametric products that policies are purchased against. Monetary
// amounts are drops, the smallest ledger currency unit, serialized as
// strings to survive JSON number precision limits.
package products

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a purchasable parametric insurance product.
// PayoutDrops is the amount escrowed per policy and snapshotted onto
// claims at creation time.
type Product struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Category         string    `json:"category"`
	PremiumDrops     int64     `json:"premium_drops,string"`
	PayoutDrops      int64     `json:"payout_drops,string"`
	ShortDescription string    `json:"short_description"`
	CoverageSummary  string    `json:"coverage_summary"`
	DescriptionMd    string    `json:"description_md"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to create a new product.
type CreateCommand struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	PremiumDrops     int64  `json:"premium_drops,string"`
	PayoutDrops      int64  `json:"payout_drops,string"`
	ShortDescription string `json:"short_description"`
	CoverageSummary  string `json:"coverage_summary"`
	DescriptionMd    string `json:"description_md"`
}

// Validate checks command fields for catalog consistency.
func (c CreateCommand) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.PayoutDrops <= 0 {
		return ErrInvalidPayout
	}
	if c.PremiumDrops < 0 {
		return ErrInvalidPremium
	}
	return nil
}

// UpdateCommand carries the data needed to update an existing product.
// Product edits never propagate to existing claims; claims freeze their
// payout terms at creation.
type UpdateCommand struct {
	Name             string `json:"name"`
	Category         string `json:"category"`
	PremiumDrops     int64  `json:"premium_drops,string"`
	PayoutDrops      int64  `json:"payout_drops,string"`
	ShortDescription string `json:"short_description"`
	CoverageSummary  string `json:"coverage_summary"`
	DescriptionMd    string `json:"description_md"`
}

// Validate checks command fields for catalog consistency.
func (c UpdateCommand) Validate() error {
	return CreateCommand(c).Validate()
}
