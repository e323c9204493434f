package claims_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/internal/claims"
	"github.com/parasol-ins/parasol/internal/evaluator"
)

func TestMapVerdict(t *testing.T) {
	tests := []struct {
		name       string
		decision   evaluator.Decision
		score      float64
		wantStatus claims.Status
		wantReason bool
	}{
		{"accept at threshold", evaluator.DecisionAccept, 0.8, claims.StatusApproved, false},
		{"accept above threshold", evaluator.DecisionAccept, 0.93, claims.StatusApproved, false},
		{"accept below threshold", evaluator.DecisionAccept, 0.79, claims.StatusManual, false},
		{"decline", evaluator.DecisionDecline, 0.99, claims.StatusRejected, true},
		{"decline low score", evaluator.DecisionDecline, 0.1, claims.StatusRejected, true},
		{"escalate", evaluator.DecisionEscalate, 0.95, claims.StatusManual, false},
		{"unknown", evaluator.DecisionUnknown, 0.95, claims.StatusManual, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := &evaluator.Verdict{Decision: tt.decision, Score: tt.score}

			status, reason := claims.MapVerdict(verdict, 0.8)
			if status != tt.wantStatus {
				t.Errorf("status = %v, want %v", status, tt.wantStatus)
			}
			if (reason != nil) != tt.wantReason {
				t.Errorf("reason = %v, wantReason %t", reason, tt.wantReason)
			}
		})
	}
}

func TestMapVerdictCustomThreshold(t *testing.T) {
	verdict := &evaluator.Verdict{Decision: evaluator.DecisionAccept, Score: 0.6}

	if status, _ := claims.MapVerdict(verdict, 0.5); status != claims.StatusApproved {
		t.Errorf("status = %v, want APPROVED at threshold 0.5", status)
	}
	if status, _ := claims.MapVerdict(verdict, 0.8); status != claims.StatusManual {
		t.Errorf("status = %v, want MANUAL at threshold 0.8", status)
	}
}

func TestParseIncidentDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"calendar date", "2026-01-15", nil},
		{"timestamp", "2026-01-15T08:30:00Z", nil},
		{"future date", "2999-01-01", claims.ErrFutureIncident},
		{"garbage", "last tuesday", claims.ErrInvalidIncidentDate},
		{"empty", "", claims.ErrInvalidIncidentDate},
		{"wrong order", "15-01-2026", claims.ErrInvalidIncidentDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := claims.ParseIncidentDate(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && parsed.IsZero() {
				t.Error("expected a parsed time")
			}
		})
	}
}

func TestParseIncidentDateValue(t *testing.T) {
	parsed, err := claims.ParseIncidentDate("2026-01-15")
	if err != nil {
		t.Fatalf("ParseIncidentDate() error = %v", err)
	}

	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("parsed = %v, want %v", parsed, want)
	}
}

func TestCreateCommandValidate(t *testing.T) {
	valid := claims.CreateCommand{
		PolicyID:     uuid.New(),
		IncidentDate: "2026-01-15",
		Details:      "roof damage from hailstorm",
		Filename:     "report.pdf",
		ContentType:  "application/pdf",
		Data:         []byte("%PDF-1.4"),
	}

	tests := []struct {
		name    string
		mutate  func(*claims.CreateCommand)
		wantErr error
	}{
		{"valid", func(c *claims.CreateCommand) {}, nil},
		{"png evidence", func(c *claims.CreateCommand) { c.ContentType = "image/png" }, nil},
		{"jpeg evidence", func(c *claims.CreateCommand) { c.ContentType = "image/jpeg" }, nil},
		{"missing details", func(c *claims.CreateCommand) { c.Details = "" }, claims.ErrDetailsRequired},
		{"bad date", func(c *claims.CreateCommand) { c.IncidentDate = "soon" }, claims.ErrInvalidIncidentDate},
		{"future date", func(c *claims.CreateCommand) { c.IncidentDate = "2999-01-01" }, claims.ErrFutureIncident},
		{"no evidence", func(c *claims.CreateCommand) { c.Data = nil }, claims.ErrEvidenceRequired},
		{"gif evidence", func(c *claims.CreateCommand) { c.ContentType = "image/gif" }, claims.ErrUnsupportedEvidence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mutate(&cmd)

			_, err := cmd.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{claims.ErrNotFound, http.StatusNotFound},
		{claims.ErrPolicyNotFound, http.StatusNotFound},
		{claims.ErrDetailsRequired, http.StatusBadRequest},
		{claims.ErrInvalidIncidentDate, http.StatusBadRequest},
		{claims.ErrFutureIncident, http.StatusBadRequest},
		{claims.ErrEvidenceRequired, http.StatusBadRequest},
		{claims.ErrUnsupportedEvidence, http.StatusBadRequest},
		{claims.ErrEvaluationUnavailable, http.StatusBadGateway},
		{claims.ErrPayoutFailed, http.StatusBadGateway},
		{claims.ErrStaleTransition, http.StatusConflict},
		{claims.ErrNotPayable, http.StatusConflict},
		{claims.ErrAlreadyEvaluated, http.StatusConflict},
		{claims.ErrAlreadyPaid, http.StatusConflict},
		{claims.ErrDuplicate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := claims.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatusWrapped(t *testing.T) {
	err := errors.Join(claims.ErrPayoutFailed, errors.New("gateway status 503"))
	if got := claims.MapHTTPStatus(err); got != http.StatusBadGateway {
		t.Errorf("MapHTTPStatus(wrapped) = %d, want %d", got, http.StatusBadGateway)
	}
}

func TestFiltersFromQuery(t *testing.T) {
	policyID := uuid.MustParse("9f4e1cde-6a2b-4f57-9f1f-0f3a6f6f2e11")

	f := claims.FiltersFromQuery(map[string][]string{
		"status":    {"APPROVED"},
		"policy_id": {policyID.String()},
	})

	if f.Status == nil || *f.Status != "APPROVED" {
		t.Errorf("status filter = %v, want APPROVED", f.Status)
	}
	if f.PolicyID == nil || *f.PolicyID != policyID {
		t.Errorf("policy filter = %v, want %s", f.PolicyID, policyID)
	}

	empty := claims.FiltersFromQuery(map[string][]string{"policy_id": {"not-a-uuid"}})
	if empty.Status != nil || empty.PolicyID != nil {
		t.Errorf("expected empty filters, got %+v", empty)
	}
}
