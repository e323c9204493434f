package query_test

import (
	"reflect"
	"testing"

	"github.com/parasol-ins/parasol/pkg/query"
)

func claimProjection() *query.ProjectionMap {
	return query.
		NewProjectionMap("public", "claims", "c").
		Project("id", "ID").
		Project("status", "Status").
		Project("created_at", "CreatedAt").
		Join("public", "policies", "po", "INNER JOIN", "c.policy_id = po.id").
		Project("user_id", "UserID")
}

func TestProjectionFrom(t *testing.T) {
	want := "public.claims c INNER JOIN public.policies po ON c.policy_id = po.id"
	if got := claimProjection().From(); got != want {
		t.Errorf("From() = %q, want %q", got, want)
	}
}

func TestProjectionColumnQualification(t *testing.T) {
	p := claimProjection()

	if got := p.Column("ID"); got != "c.id" {
		t.Errorf("Column(ID) = %q, want c.id", got)
	}
	if got := p.Column("UserID"); got != "po.user_id" {
		t.Errorf("Column(UserID) = %q, want po.user_id", got)
	}
	if got := p.Column("Unmapped"); got != "Unmapped" {
		t.Errorf("Column(Unmapped) = %q, want passthrough", got)
	}
}

func TestBuildWithConditions(t *testing.T) {
	status := "APPROVED"
	userID := "user-1"

	sql, args := query.NewBuilder(claimProjection()).
		WhereEquals("Status", &status).
		WhereEquals("UserID", &userID).
		Build()

	want := "SELECT c.id, c.status, c.created_at, po.user_id " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id " +
		"WHERE c.status = $1 AND po.user_id = $2"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != &status || args[1] != &userID {
		t.Errorf("args = %v, want [&status, &userID]", args)
	}
}

func TestWhereEqualsNilIgnored(t *testing.T) {
	var status *string

	sql, args := query.NewBuilder(claimProjection()).
		WhereEquals("Status", status).
		Build()

	want := "SELECT c.id, c.status, c.created_at, po.user_id " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildSingleOrNull(t *testing.T) {
	id := "claim-1"
	userID := "user-1"

	sql, args := query.NewBuilder(claimProjection()).
		WhereEquals("ID", &id).
		WhereEquals("UserID", &userID).
		BuildSingleOrNull()

	want := "SELECT c.id, c.status, c.created_at, po.user_id " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id " +
		"WHERE c.id = $1 AND po.user_id = $2 LIMIT 1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("args = %v, want two", args)
	}
}

func TestBuildCount(t *testing.T) {
	status := "APPROVED"

	sql, args := query.NewBuilder(claimProjection()).
		WhereEquals("Status", &status).
		BuildCount()

	want := "SELECT COUNT(*) " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id " +
		"WHERE c.status = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 {
		t.Errorf("args = %v, want one", args)
	}
}

func TestBuildPage(t *testing.T) {
	sql, _ := query.NewBuilder(claimProjection(), query.SortField{Field: "CreatedAt", Descending: true}).
		BuildPage(3, 20)

	want := "SELECT c.id, c.status, c.created_at, po.user_id " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id " +
		"ORDER BY c.created_at DESC LIMIT 20 OFFSET 40"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestWhereSearch(t *testing.T) {
	search := "storm"

	sql, args := query.NewBuilder(claimProjection()).
		WhereSearch(&search, "Status", "UserID").
		Build()

	want := "SELECT c.id, c.status, c.created_at, po.user_id " +
		"FROM public.claims c INNER JOIN public.policies po ON c.policy_id = po.id " +
		"WHERE (c.status ILIKE $1 OR po.user_id ILIKE $2)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 2 || args[0] != "%storm%" {
		t.Errorf("args = %v, want two %%storm%% patterns", args)
	}
}

func TestParseSortFields(t *testing.T) {
	got := query.ParseSortFields("Status,-CreatedAt")
	want := []query.SortField{
		{Field: "Status", Descending: false},
		{Field: "CreatedAt", Descending: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSortFields() = %v, want %v", got, want)
	}

	if got := query.ParseSortFields(""); got != nil {
		t.Errorf("ParseSortFields(empty) = %v, want nil", got)
	}
}
