// Package client is the HTTP client for the tucana resolution service,
// used by the CLI and by integrations that prefer not to link the engine
// directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tucanapay/tucana/service/confirm"
	"github.com/tucanapay/tucana/service/learner"
	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

// Client is the HTTP client for the tucana service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve sends a raw payload to the server for decoding and validation.
func (c *Client) Resolve(ctx context.Context, rawPayload string) (*payload.Request, error) {
	var out payload.Request
	err := c.post(ctx, "/api/v1/resolve", map[string]any{"payload": rawPayload}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PreselectRequest mirrors the server's preselect body.
type PreselectRequest struct {
	UserID           string                       `json:"user_id,omitempty"`
	Recipient        string                       `json:"recipient,omitempty"`
	Amount           string                       `json:"amount,omitempty"`
	Balances         map[string]map[string]string `json:"balances"`
	RecipientChain   string                       `json:"recipient_chain,omitempty"`
	PreselectedChain string                       `json:"preselected_chain,omitempty"`
	RequireBalance   *bool                        `json:"require_balance,omitempty"`
}

// PreselectResult is the server's preselect answer.
type PreselectResult struct {
	TokenID  string `json:"token_id"`
	Chain    string `json:"chain"`
	Fallback string `json:"fallback"`
}

// Preselect asks the server which token and chain to pre-fill a send with.
func (c *Client) Preselect(ctx context.Context, req PreselectRequest) (*PreselectResult, error) {
	var out PreselectResult
	if err := c.post(ctx, "/api/v1/preselect", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CanSend checks whether amount of token can be sent from chain.
func (c *Client) CanSend(ctx context.Context, token, chain, amount string, balances map[string]map[string]string) (*selector.CanSendResult, error) {
	body := map[string]any{
		"token":    token,
		"chain":    chain,
		"amount":   amount,
		"balances": balances,
	}
	var out selector.CanSendResult
	if err := c.post(ctx, "/api/v1/can-send", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmationRequest mirrors the server's confirmation body.
type ConfirmationRequest struct {
	UserID         string                       `json:"user_id,omitempty"`
	Recipient      string                       `json:"recipient"`
	Amount         string                       `json:"amount"`
	TokenID        string                       `json:"token_id"`
	Chain          string                       `json:"chain"`
	RecipientChain string                       `json:"recipient_chain,omitempty"`
	Balances       map[string]map[string]string `json:"balances,omitempty"`
}

// BuildConfirmation asks the server for the fee/warning confirmation.
func (c *Client) BuildConfirmation(ctx context.Context, req ConfirmationRequest) (*confirm.Confirmation, error) {
	var out confirm.Confirmation
	if err := c.post(ctx, "/api/v1/confirmation", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordPayment reports a completed send so the learner can observe it.
func (c *Client) RecordPayment(ctx context.Context, userID, tokenID, chain, recipient string) error {
	body := map[string]any{
		"user_id":   userID,
		"token_id":  tokenID,
		"chain":     chain,
		"recipient": recipient,
	}
	return c.post(ctx, "/api/v1/payments", body, nil)
}

// Preferences fetches the learned preference snapshot for a user.
func (c *Client) Preferences(ctx context.Context, userID string) (*learner.Preferences, error) {
	u := fmt.Sprintf("%s/api/v1/preferences/%s", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var out learner.Preferences
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// post marshals body, issues the request, and decodes the answer into out
// (out may be nil for status-only endpoints).
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse extracts the server's error body, falling back to the
// raw status when the body isn't the expected shape.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if body.Kind != "" {
		return fmt.Errorf("%s error: %s", body.Kind, body.Error)
	}
	return fmt.Errorf("%s", body.Error)
}
