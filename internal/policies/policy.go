// Package policies implements policy purchase and lifecycle management.
// A policy binds a user to a product and an on-ledger escrow holding the
// product's payout amount. Claims settle against the policy's escrow.
package policies

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a policy.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
	StatusLapsed    Status = "LAPSED"
)

// Policy represents a purchased policy with joined product context.
type Policy struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID uuid.UUID `json:"product_id"`
	EscrowID  string    `json:"escrow_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductName  string `json:"product_name"`
	Category     string `json:"category"`
	PremiumDrops int64  `json:"premium_drops,string"`
	PayoutDrops  int64  `json:"payout_drops,string"`
}

// PurchaseCommand carries the data needed to purchase a policy.
type PurchaseCommand struct {
	ProductID uuid.UUID `json:"product_id"`
}

// PayoutTerms is the subset of policy state claims need to settle a
// payout. DescriptionMd carries the product's full coverage terms for
// evidence evaluation context.
type PayoutTerms struct {
	EscrowID      string `json:"escrow_id"`
	PayoutDrops   int64  `json:"payout_drops,string"`
	DescriptionMd string `json:"description_md"`
}
