// Package escrow implements the client for the ledger escrow partner
// service. Escrows are created when a policy is purchased, finished to
// release a claim payout, and cancelled to return funds to the insurer.
package escrow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SessionHeader carries the partner session token, forwarded opaquely
// from the caller on every escrow operation.
const SessionHeader = "X-Session-Token"

// Receipt is the partner's acknowledgement of a finish or cancel operation.
// Raw preserves the gateway payload for audit storage.
type Receipt struct {
	EscrowID string          `json:"escrow_id"`
	Finished bool            `json:"finished"`
	TxHash   string          `json:"tx_hash"`
	Raw      json.RawMessage `json:"-"`
}

// Client calls the escrow gateway over HTTP. Successful finishes are
// latched per escrow id for the process lifetime: the gateway is expected
// to be idempotent per escrow, but the client does not rely on it and
// avoids redundant finish calls entirely.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger

	flight   singleflight.Group
	mu       sync.Mutex
	finished map[string]*Receipt
}

// New creates an escrow gateway client from the given configuration.
func New(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.TimeoutDuration()},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		logger:   logger.With("system", "escrow"),
		finished: make(map[string]*Receipt),
	}
}

type createResponse struct {
	EscrowID string `json:"escrow_id"`
}

// Create opens a new escrow funded with the given amount of drops and
// returns the ledger escrow id.
func (c *Client) Create(ctx context.Context, session string, amountDrops int64) (string, error) {
	endpoint := fmt.Sprintf(
		"%s/escrow/create?%s",
		c.baseURL,
		url.Values{"amount_drops": {strconv.FormatInt(amountDrops, 10)}}.Encode(),
	)

	raw, err := c.post(ctx, session, endpoint, nil)
	if err != nil {
		return "", &OperationError{Op: "create", Cause: err}
	}

	var parsed createResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &OperationError{Op: "create", Cause: fmt.Errorf("decode response: %w", err)}
	}
	if parsed.EscrowID == "" {
		return "", &OperationError{Op: "create", Cause: fmt.Errorf("gateway returned no escrow id")}
	}

	c.logger.Info("escrow created", "escrow_id", parsed.EscrowID, "amount_drops", amountDrops)
	return parsed.EscrowID, nil
}

// Finish releases the escrowed funds to the claimant. A finish that has
// already succeeded in this process returns the latched receipt without
// another gateway call, and concurrent finishes for one escrow collapse
// into a single in-flight gateway call whose receipt is shared.
func (c *Client) Finish(ctx context.Context, session, escrowID string) (*Receipt, error) {
	c.mu.Lock()
	if receipt, ok := c.finished[escrowID]; ok {
		c.mu.Unlock()
		c.logger.Info("escrow finish already latched", "escrow_id", escrowID, "tx_hash", receipt.TxHash)
		return receipt, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(escrowID, func() (any, error) {
		// Re-check under the flight: a caller that raced the latch lookup
		// may be joining after the winner already recorded the receipt.
		c.mu.Lock()
		if receipt, ok := c.finished[escrowID]; ok {
			c.mu.Unlock()
			return receipt, nil
		}
		c.mu.Unlock()

		receipt, err := c.settle(ctx, session, "finish", escrowID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.finished[escrowID] = receipt
		c.mu.Unlock()

		c.logger.Info("escrow finished", "escrow_id", escrowID, "tx_hash", receipt.TxHash)
		return receipt, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Receipt), nil
}

// Cancel returns the escrowed funds to the insurer.
func (c *Client) Cancel(ctx context.Context, session, escrowID string) (*Receipt, error) {
	receipt, err := c.settle(ctx, session, "cancel", escrowID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("escrow cancelled", "escrow_id", escrowID, "tx_hash", receipt.TxHash)
	return receipt, nil
}

type settleRequest struct {
	EscrowID string `json:"escrow_id"`
}

func (c *Client) settle(ctx context.Context, session, op, escrowID string) (*Receipt, error) {
	if escrowID == "" {
		return nil, &OperationError{Op: op, Cause: ErrMissingEscrowID}
	}

	body, err := json.Marshal(settleRequest{EscrowID: escrowID})
	if err != nil {
		return nil, &OperationError{EscrowID: escrowID, Op: op, Cause: err}
	}

	raw, err := c.post(ctx, session, fmt.Sprintf("%s/escrow/%s", c.baseURL, op), body)
	if err != nil {
		return nil, &OperationError{EscrowID: escrowID, Op: op, Cause: err}
	}

	var receipt Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, &OperationError{EscrowID: escrowID, Op: op, Cause: fmt.Errorf("decode response: %w", err)}
	}
	receipt.Raw = json.RawMessage(raw)

	if op == "finish" && (!receipt.Finished || receipt.TxHash == "") {
		return nil, &OperationError{
			EscrowID: escrowID,
			Op:       op,
			Cause:    fmt.Errorf("gateway reported unfinished escrow"),
		}
	}

	return &receipt, nil
}

func (c *Client) post(ctx context.Context, session, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
