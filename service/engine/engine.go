// Package engine is the façade over the payment request resolution pipeline:
// classify and parse raw payloads, validate them, preselect a token and
// chain against the user's balances and learned preferences, and build the
// final confirmation. The engine itself performs no I/O beyond the injected
// preference store; balances always arrive from the caller.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/confirm"
	"github.com/tucanapay/tucana/service/learner"
	"github.com/tucanapay/tucana/service/metrics"
	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

// Engine wires the pure components to the stateful learner.
type Engine struct {
	learner *learner.Learner
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. metrics may be nil to disable recording.
func New(l *learner.Learner, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{learner: l, metrics: m, logger: logger}
}

// Resolve decodes a scanned or pasted payload into a validated normalized
// request. Failures are terminal values: a *payload.ParseError for
// unrecognized or malformed payloads, a *payload.ValidationError for
// decodable but semantically invalid ones.
func (e *Engine) Resolve(raw string) (*payload.Request, error) {
	format := payload.Classify(raw)
	e.metrics.RecordClassification(string(format))

	req, err := payload.Parse(raw)
	if err != nil {
		e.metrics.RecordParseFailure(string(format))
		e.logger.Debug("payload parse failed", "format", format, "error", err)
		return nil, err
	}

	if err := req.Validate(); err != nil {
		e.metrics.RecordValidationFailure(string(format))
		e.logger.Debug("payload validation failed", "format", format, "error", err)
		return nil, err
	}

	e.logger.Info("payload resolved",
		"format", req.Format,
		"has_amount", req.Amount != "",
	)
	return req, nil
}

// PreselectParams describe one send flow about to be pre-filled.
type PreselectParams struct {
	Recipient        string
	Amount           decimal.Decimal
	Balances         selector.Balances
	RecipientChain   chains.Key
	PreselectedChain chains.Key
	RequireBalance   bool
}

// BuildContext assembles a selector context from the caller's snapshot and
// the learner's stored preferences and history.
func (e *Engine) BuildContext(ctx context.Context, p PreselectParams) (selector.Context, error) {
	sctx := selector.Context{
		RecipientChain:   p.RecipientChain,
		PreselectedChain: p.PreselectedChain,
		Balances:         p.Balances,
		Amount:           p.Amount,
		RequireBalance:   p.RequireBalance,
	}

	prefs, err := e.learner.Preferences(ctx)
	if err != nil {
		return sctx, fmt.Errorf("load preferences: %w", err)
	}
	sctx.PreferredTokenID = prefs.DefaultTokenID
	sctx.FavoriteChainByToken = prefs.FavoriteChainByToken

	recent, err := e.learner.RecentTokenIDs(ctx)
	if err != nil {
		return sctx, fmt.Errorf("load recent tokens: %w", err)
	}
	sctx.RecentTokenIDs = recent

	lastUsed, err := e.learner.LastUsedWithRecipient(ctx, p.Recipient)
	if err != nil {
		return sctx, fmt.Errorf("load recipient history: %w", err)
	}
	sctx.LastUsedWithRecipient = lastUsed

	return sctx, nil
}

// Preselect picks the token and chain to pre-fill the send flow with.
func (e *Engine) Preselect(ctx context.Context, p PreselectParams) (selector.TokenChain, selector.Fallback, error) {
	sctx, err := e.BuildContext(ctx, p)
	if err != nil {
		return selector.TokenChain{}, "", err
	}

	pick, fallback := selector.SmartPreselect(sctx)
	e.metrics.RecordPreselect(string(fallback))
	e.logger.Info("token preselected",
		"token", pick.TokenID,
		"chain", pick.Chain,
		"fallback", fallback,
	)
	return pick, fallback, nil
}

// CanSend checks whether amount of token can leave the given chain. When it
// cannot, the returned error is an *InsufficientBalanceError carrying the
// reason and any suggested alternative; the result is returned either way.
func (e *Engine) CanSend(token string, chain chains.Key, amount decimal.Decimal, balances selector.Balances) (selector.CanSendResult, error) {
	result := selector.CanSendFromChain(token, chain, amount, balances)
	if result.CanSend {
		e.metrics.RecordCanSend("ok")
		return result, nil
	}
	e.metrics.RecordCanSend("insufficient")
	return result, &InsufficientBalanceError{Result: result}
}

// ConfirmParams describe a send the user is about to approve.
type ConfirmParams struct {
	Recipient      string
	Amount         decimal.Decimal
	TokenID        string
	Chain          chains.Key
	RecipientChain chains.Key

	// Balances enables auto-bridge planning when the chosen chain alone
	// cannot cover the amount. Nil skips planning.
	Balances selector.Balances
}

// Confirm builds the payment confirmation: fees, optional auto-bridge plan,
// time estimate, and warnings. First-time-recipient detection comes from the
// learner's payment log.
func (e *Engine) Confirm(ctx context.Context, p ConfirmParams) (confirm.Confirmation, error) {
	var bridge *selector.AutoBridgePlan
	if p.Balances != nil {
		if plan, ok := selector.PlanAutoBridge(p.TokenID, p.Chain, p.Amount, p.Balances); ok {
			bridge = plan
		}
	}

	firstTime := true
	if p.Recipient != "" {
		lastUsed, err := e.learner.LastUsedWithRecipient(ctx, p.Recipient)
		if err != nil {
			return confirm.Confirmation{}, fmt.Errorf("load recipient history: %w", err)
		}
		firstTime = lastUsed == nil
	}

	c := confirm.Build(confirm.Params{
		Recipient:            p.Recipient,
		Amount:               p.Amount,
		TokenID:              p.TokenID,
		Chain:                p.Chain,
		AutoBridge:           bridge,
		RecipientChain:       p.RecipientChain,
		IsFirstTimeRecipient: firstTime,
	})
	e.logger.Info("confirmation built",
		"token", c.TokenID,
		"chain", c.Chain,
		"bridging", c.AutoBridge != nil,
		"warnings", len(c.Warnings),
	)
	return c, nil
}

// RecordPayment feeds a completed send into the behavior learner.
func (e *Engine) RecordPayment(ctx context.Context, tokenID string, chain chains.Key, recipient string) error {
	if err := e.learner.RecordPayment(ctx, tokenID, chain, recipient); err != nil {
		return err
	}
	e.metrics.RecordPaymentRecorded(string(chain))
	return nil
}

// Preferences exposes the learner's latest committed snapshot for display.
func (e *Engine) Preferences(ctx context.Context) (learner.Preferences, error) {
	return e.learner.Preferences(ctx)
}
