package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/learner"
	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
)

const testRecipient = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(learner.New(learner.NewMemoryStore(), nil, logger), nil, logger)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestResolve(t *testing.T) {
	e := newTestEngine(t)

	req, err := e.Resolve("solana:" + testRecipient + "?amount=12.5")
	require.NoError(t, err)
	assert.Equal(t, payload.FormatSolanaPayDirect, req.Format)
	assert.Equal(t, testRecipient, req.RecipientKey)
	assert.Equal(t, "12.5", req.Amount)
}

func TestResolve_ParseError(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Resolve("not a payment payload")
	var parseErr *payload.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.False(t, IsRecoverable(err))
}

func TestResolve_ValidationError(t *testing.T) {
	e := newTestEngine(t)

	// Decodes fine but the amount is not a valid decimal.
	_, err := e.Resolve("solana:" + testRecipient + "?amount=1,000")
	var validationErr *payload.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.False(t, IsRecoverable(err))
}

func TestPreselect_UsesLearnedHistory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.RecordPayment(ctx, "eth", chains.Base, "alice"))

	balances := selector.Balances{
		"eth":  {chains.Base: dec("5")},
		"usdc": {chains.Solana: dec("5")},
	}
	pick, fallback, err := e.Preselect(ctx, PreselectParams{
		Recipient:      "alice",
		Amount:         dec("1"),
		Balances:       balances,
		RequireBalance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, selector.FallbackLastWithRecipient, fallback)
	assert.Equal(t, selector.TokenChain{TokenID: "eth", Chain: chains.Base}, pick)
}

func TestPreselect_PromotedDefaultWins(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// Two consecutive agreeing payments promote usdc/solana to the default.
	require.NoError(t, e.RecordPayment(ctx, "usdc", chains.Solana, ""))
	require.NoError(t, e.RecordPayment(ctx, "usdc", chains.Solana, ""))

	balances := selector.Balances{
		"usdc": {chains.Solana: dec("100")},
		"eth":  {chains.Base: dec("100")},
	}
	pick, fallback, err := e.Preselect(ctx, PreselectParams{
		Amount:         dec("10"),
		Balances:       balances,
		RequireBalance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, selector.FallbackPreferredToken, fallback)
	assert.Equal(t, selector.TokenChain{TokenID: "usdc", Chain: chains.Solana}, pick)
}

func TestCanSend(t *testing.T) {
	e := newTestEngine(t)
	balances := selector.Balances{
		"usdc": {chains.Ethereum: dec("5"), chains.Polygon: dec("150")},
	}

	result, err := e.CanSend("usdc", chains.Polygon, dec("100"), balances)
	require.NoError(t, err)
	assert.True(t, result.CanSend)

	result, err = e.CanSend("usdc", chains.Ethereum, dec("100"), balances)
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.False(t, result.CanSend)
	assert.Equal(t, chains.Polygon, result.SuggestedChain)
	assert.False(t, IsRecoverable(err))
}

func TestConfirm_FirstTimeRecipient(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c, err := e.Confirm(ctx, ConfirmParams{
		Recipient: "alice",
		Amount:    dec("50"),
		TokenID:   "usdc",
		Chain:     chains.Solana,
	})
	require.NoError(t, err)
	require.Len(t, c.Warnings, 1)
	assert.Equal(t, "first_time_recipient", c.Warnings[0].Type)

	require.NoError(t, e.RecordPayment(ctx, "usdc", chains.Solana, "alice"))

	c, err = e.Confirm(ctx, ConfirmParams{
		Recipient: "alice",
		Amount:    dec("50"),
		TokenID:   "usdc",
		Chain:     chains.Solana,
	})
	require.NoError(t, err)
	assert.Empty(t, c.Warnings)
}

func TestConfirm_AutoBridgePlanned(t *testing.T) {
	e := newTestEngine(t)

	c, err := e.Confirm(context.Background(), ConfirmParams{
		Amount:  dec("100"),
		TokenID: "usdc",
		Chain:   chains.Ethereum,
		Balances: selector.Balances{
			"usdc": {chains.Ethereum: dec("40"), chains.Solana: dec("100")},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, c.AutoBridge)
	assert.Equal(t, []chains.Key{chains.Solana}, c.AutoBridge.FromChains)
	assert.Equal(t, "~2 minutes", c.EstimatedTime)
	assert.True(t, c.Fees.BridgeFee.IsPositive())
}

func TestNilMetricsAreSafe(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Resolve("solana:" + testRecipient)
	assert.NoError(t, err)
}
