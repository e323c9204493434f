// Package claims implements the claim lifecycle: submission with
// evidence, automated evaluation, escrow payout, and the guarded state
// machine that ties them together. Claim status only moves through
// compare-and-swap transitions against the database; there are no
// in-memory locks and concurrent writers lose cleanly.
package claims

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/evaluator"
)

// Status represents the lifecycle state of a claim.
//
// SUBMITTED is the only entry state. Automated evaluation moves a claim
// to APPROVED, REJECTED, or MANUAL exactly once. APPROVED claims move to
// PAID when the escrow payout settles. REJECTED, MANUAL, and PAID are
// terminal for automation; MANUAL awaits a human reviewer.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusManual    Status = "MANUAL"
	StatusPaid      Status = "PAID"
)

// Claim represents a filed claim with joined policy and product context.
// PayoutDropsSnapshot and ProductDescriptionMd are frozen at submission;
// later product edits never change what a pending claim pays.
type Claim struct {
	ID           uuid.UUID `json:"id"`
	PolicyID     uuid.UUID `json:"policy_id"`
	Status       Status    `json:"status"`
	IncidentDate time.Time `json:"incident_date"`
	Details      string    `json:"details"`

	EvidenceURL   string `json:"evidence_url"`
	EvidencePages *int   `json:"evidence_pages,omitempty"`

	AIDecision     *string         `json:"ai_decision,omitempty"`
	AIRaw          json.RawMessage `json:"ai_raw,omitempty"`
	RejectedReason *string         `json:"rejected_reason,omitempty"`

	PayoutDropsSnapshot  int64  `json:"payout_drops_snapshot,string"`
	ProductDescriptionMd string `json:"product_description_md"`

	PayoutTxHash *string         `json:"payout_tx_hash,omitempty"`
	PayoutAt     *time.Time      `json:"payout_at,omitempty"`
	PayoutMeta   json.RawMessage `json:"payout_meta,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      string `json:"user_id"`
	EscrowID    string `json:"escrow_id"`
	ProductName string `json:"product_name"`
}

// CreateCommand carries the data needed to file a claim.
type CreateCommand struct {
	PolicyID     uuid.UUID
	IncidentDate string
	Details      string
	Filename     string
	ContentType  string
	Data         []byte
	Pages        *int
}

// allowed evidence MIME types
var allowedEvidence = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

// Validate checks command fields and returns the parsed incident date.
func (c CreateCommand) Validate() (time.Time, error) {
	if c.Details == "" {
		return time.Time{}, ErrDetailsRequired
	}

	incident, err := ParseIncidentDate(c.IncidentDate)
	if err != nil {
		return time.Time{}, err
	}

	if len(c.Data) == 0 {
		return time.Time{}, ErrEvidenceRequired
	}
	if !allowedEvidence[c.ContentType] {
		return time.Time{}, ErrUnsupportedEvidence
	}

	return incident, nil
}

// ParseIncidentDate accepts a calendar date or an RFC 3339 timestamp and
// rejects dates in the future.
func ParseIncidentDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, ErrInvalidIncidentDate
		}
	}

	if t.After(time.Now()) {
		return time.Time{}, ErrFutureIncident
	}

	return t, nil
}

// MapVerdict applies the decision table to an evaluation verdict.
// An Accept at or above threshold approves; a low-confidence Accept,
// an Escalate, and anything unrecognized all route to manual review.
// Only a Decline rejects.
func MapVerdict(v *evaluator.Verdict, threshold float64) (Status, *string) {
	switch v.Decision {
	case evaluator.DecisionAccept:
		if v.Score >= threshold {
			return StatusApproved, nil
		}
		return StatusManual, nil
	case evaluator.DecisionDecline:
		reason := "declined by automated evaluation"
		return StatusRejected, &reason
	default:
		return StatusManual, nil
	}
}

// SweepResult reports the outcome of a payout reconciliation pass.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Paid      int `json:"paid"`
	Failed    int `json:"failed"`
}
