// Package evaluator implements the client for the external AI evidence
// evaluation service. It submits claim evidence for scoring and normalizes
// the partner response into a closed verdict set that drives the claim
// state machine.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/parasol-ins/parasol/pkg/formatting"
)

// Decision is the closed set of verdict outcomes. Unrecognized remote
// values decode to DecisionUnknown rather than failing.
type Decision string

const (
	DecisionAccept   Decision = "Accept"
	DecisionDecline  Decision = "Decline"
	DecisionEscalate Decision = "Escalate"
	DecisionUnknown  Decision = "Unknown"
)

// ParseDecision normalizes a remote decision string into the closed set.
// The partner has shipped several spellings over time; all are mapped here
// and anything unrecognized degrades to DecisionUnknown.
func ParseDecision(s string) Decision {
	switch s {
	case "Accept", "Accepted", "approve", "accept":
		return DecisionAccept
	case "Decline", "Declined", "reject", "decline":
		return DecisionDecline
	case "Escalate", "Escalate to human", "manual", "escalate":
		return DecisionEscalate
	default:
		return DecisionUnknown
	}
}

// Verdict is the normalized output of an evidence evaluation.
// Raw preserves the partner's JSON payload, unwrapped from any markdown
// fence, for audit storage.
type Verdict struct {
	Decision Decision        `json:"decision"`
	Score    float64         `json:"score"`
	Fields   json.RawMessage `json:"fields,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// Client calls the evidence evaluation service over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// New creates an evaluator client from the given configuration.
func New(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.TimeoutDuration()},
		baseURL: cfg.BaseURL,
		logger:  logger.With("system", "evaluator"),
	}
}

type evaluateRequest struct {
	ClaimID     string `json:"claimId"`
	EvidenceURL string `json:"evidenceUrl"`
}

type evaluateResponse struct {
	Decision string          `json:"decision"`
	Score    float64         `json:"score"`
	Fields   json.RawMessage `json:"fields"`
}

// Evaluate submits the claim's evidence reference for scoring. Transport
// failures, timeouts, and non-2xx responses all wrap ErrUnavailable: the
// caller must leave the claim untouched so evaluation can be retried.
func (c *Client) Evaluate(ctx context.Context, claimID uuid.UUID, evidenceURL string) (*Verdict, error) {
	body, err := json.Marshal(evaluateRequest{
		ClaimID:     claimID.String(),
		EvidenceURL: evidenceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/v1/ocr/evaluate",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn(
			"evaluation service error",
			"claim_id", claimID,
			"status", resp.StatusCode,
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// LLM-backed scorers occasionally wrap the JSON payload in a markdown
	// code fence. The fence is stripped before parsing and before the
	// payload is kept for audit, so Raw always holds valid JSON.
	clean, err := formatting.ExtractJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	parsed, err := formatting.Parse[evaluateResponse](clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	verdict := &Verdict{
		Decision: ParseDecision(parsed.Decision),
		Score:    parsed.Score,
		Fields:   parsed.Fields,
		Raw:      json.RawMessage(clean),
	}

	c.logger.Info(
		"evidence evaluated",
		"claim_id", claimID,
		"decision", verdict.Decision,
		"score", verdict.Score,
	)

	return verdict, nil
}
