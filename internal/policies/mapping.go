package policies

import (
	"net/url"

	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "policies", "po").
	Project("id", "ID").
	Project("user_id", "UserID").
	Project("product_id", "ProductID").
	Project("escrow_id", "EscrowID").
	Project("status", "Status").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "products", "pr", "INNER JOIN", "po.product_id = pr.id").
	Project("name", "ProductName").
	Project("category", "Category").
	Project("premium_drops", "PremiumDrops").
	Project("payout_drops", "PayoutDrops")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for policy queries.
// Nil fields are ignored.
type Filters struct {
	Status   *string `json:"status,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Category", f.Category)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	return f
}

func scanPolicy(s repository.Scanner) (Policy, error) {
	var p Policy
	err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.ProductID,
		&p.EscrowID,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ProductName,
		&p.Category,
		&p.PremiumDrops,
		&p.PayoutDrops,
	)
	return p, err
}
