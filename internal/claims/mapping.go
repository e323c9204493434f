package claims

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "claims", "c").
	Project("id", "ID").
	Project("policy_id", "PolicyID").
	Project("status", "Status").
	Project("incident_date", "IncidentDate").
	Project("details", "Details").
	Project("evidence_url", "EvidenceURL").
	Project("evidence_pages", "EvidencePages").
	Project("ai_decision", "AIDecision").
	Project("ai_raw", "AIRaw").
	Project("rejected_reason", "RejectedReason").
	Project("payout_drops_snapshot", "PayoutDropsSnapshot").
	Project("product_description_md", "ProductDescriptionMd").
	Project("payout_tx_hash", "PayoutTxHash").
	Project("payout_at", "PayoutAt").
	Project("payout_meta", "PayoutMeta").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "policies", "po", "INNER JOIN", "c.policy_id = po.id").
	Project("user_id", "UserID").
	Project("escrow_id", "EscrowID").
	Join("public", "products", "pr", "INNER JOIN", "po.product_id = pr.id").
	Project("name", "ProductName")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for claim queries.
// Nil fields are ignored.
type Filters struct {
	Status   *string    `json:"status,omitempty"`
	PolicyID *uuid.UUID `json:"policy_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("PolicyID", f.PolicyID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if p := values.Get("policy_id"); p != "" {
		if id, err := uuid.Parse(p); err == nil {
			f.PolicyID = &id
		}
	}

	return f
}

func scanClaim(s repository.Scanner) (Claim, error) {
	var (
		c          Claim
		aiRaw      []byte
		payoutMeta []byte
	)

	// The jsonb columns are nullable; scan through []byte so a NULL maps
	// to a nil slice instead of failing the row scan.
	err := s.Scan(
		&c.ID,
		&c.PolicyID,
		&c.Status,
		&c.IncidentDate,
		&c.Details,
		&c.EvidenceURL,
		&c.EvidencePages,
		&c.AIDecision,
		&aiRaw,
		&c.RejectedReason,
		&c.PayoutDropsSnapshot,
		&c.ProductDescriptionMd,
		&c.PayoutTxHash,
		&c.PayoutAt,
		&payoutMeta,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.UserID,
		&c.EscrowID,
		&c.ProductName,
	)
	if err != nil {
		return c, err
	}

	c.AIRaw = aiRaw
	c.PayoutMeta = payoutMeta
	return c, nil
}
