package products

import (
	"net/url"
	"strconv"

	"github.com/parasol-ins/parasol/pkg/query"
	"github.com/parasol-ins/parasol/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "products", "p").
	Project("id", "ID").
	Project("name", "Name").
	Project("category", "Category").
	Project("premium_drops", "PremiumDrops").
	Project("payout_drops", "PayoutDrops").
	Project("short_description", "ShortDescription").
	Project("coverage_summary", "CoverageSummary").
	Project("description_md", "DescriptionMd").
	Project("active", "Active").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for product queries.
// Nil fields are ignored.
type Filters struct {
	Category *string `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Category", f.Category).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if c := values.Get("category"); c != "" {
		f.Category = &c
	}

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	return f
}

func scanProduct(s repository.Scanner) (Product, error) {
	var p Product
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Category,
		&p.PremiumDrops,
		&p.PayoutDrops,
		&p.ShortDescription,
		&p.CoverageSummary,
		&p.DescriptionMd,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
