package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tucanapay/tucana/service/chains"
)

func TestSmartPreselect_PreferredToken(t *testing.T) {
	ctx := Context{
		PreferredTokenID: "USDC",
		Balances: Balances{
			"usdc": {chains.Solana: dec("50")},
			"eth":  {chains.Base: dec("1")},
		},
		Amount:         dec("10"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackPreferredToken, fallback)
	assert.Equal(t, TokenChain{TokenID: "usdc", Chain: chains.Solana}, pick)
}

func TestSmartPreselect_PreferredTokenOtherChain(t *testing.T) {
	// The preferred token can't cover the amount anywhere, but a positive
	// balance keeps the selection on the token.
	ctx := Context{
		PreferredTokenID: "usdc",
		Balances: Balances{
			"usdc": {chains.Base: dec("2")},
		},
		Amount:         dec("10"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackPreferredOtherChain, fallback)
	assert.Equal(t, "usdc", pick.TokenID)
	assert.Equal(t, chains.Base, pick.Chain)
}

func TestSmartPreselect_LastUsedWithRecipient(t *testing.T) {
	ctx := Context{
		LastUsedWithRecipient: &TokenChain{TokenID: "eth", Chain: chains.Base},
		Balances: Balances{
			"eth": {chains.Base: dec("5")},
		},
		Amount:         dec("1"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackLastWithRecipient, fallback)
	assert.Equal(t, TokenChain{TokenID: "eth", Chain: chains.Base}, pick)
}

func TestSmartPreselect_LastUsedOtherChain(t *testing.T) {
	// The exact chain used last time is drained; the same token on another
	// funded chain is the next best memory.
	ctx := Context{
		LastUsedWithRecipient: &TokenChain{TokenID: "eth", Chain: chains.Base},
		Balances: Balances{
			"eth": {chains.Base: dec("0"), chains.Ethereum: dec("5")},
		},
		Amount:         dec("1"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackLastOtherChain, fallback)
	assert.Equal(t, TokenChain{TokenID: "eth", Chain: chains.Ethereum}, pick)
}

func TestSmartPreselect_RecentToken(t *testing.T) {
	ctx := Context{
		RecentTokenIDs: []string{"pol", "sol"},
		Balances: Balances{
			"sol": {chains.Solana: dec("20")},
		},
		Amount:         dec("1"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackRecentToken, fallback)
	assert.Equal(t, TokenChain{TokenID: "sol", Chain: chains.Solana}, pick)
}

func TestSmartPreselect_RecentTokenWindowLimited(t *testing.T) {
	// Only the three most recent tokens count; "sol" at position four is
	// out of the window even though it is funded.
	ctx := Context{
		RecentTokenIDs: []string{"a", "b", "c", "sol"},
		Balances: Balances{
			"sol": {chains.Solana: dec("20")},
		},
		Amount:         dec("1"),
		RequireBalance: true,
	}

	_, fallback := SmartPreselect(ctx)
	assert.NotEqual(t, FallbackRecentToken, fallback)
}

func TestSmartPreselect_LargestBalance(t *testing.T) {
	ctx := Context{
		Balances: Balances{
			"usdt": {chains.Ethereum: dec("300")},
			"usdc": {chains.Polygon: dec("40")},
		},
		Amount:         dec("1"),
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackLargestBalance, fallback)
	assert.Equal(t, "usdt", pick.TokenID)
	assert.Equal(t, chains.Ethereum, pick.Chain)
}

func TestSmartPreselect_FavoriteChain(t *testing.T) {
	// Every balance is zero so the ladder falls past the usage-based rules;
	// a zero-amount quote on the stored favorite still satisfies it.
	ctx := Context{
		FavoriteChainByToken: map[string]chains.Key{"sol": chains.Solana},
		Balances: Balances{
			"sol": {chains.Solana: dec("0")},
		},
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackFavoriteChain, fallback)
	assert.Equal(t, TokenChain{TokenID: "sol", Chain: chains.Solana}, pick)
}

func TestSmartPreselect_RecipientNativeToken(t *testing.T) {
	ctx := Context{
		Balances: Balances{
			"pol": {chains.Polygon: dec("0")},
		},
		RequireBalance: true,
		RecipientChain: chains.Polygon,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackNativeToken, fallback)
	assert.Equal(t, TokenChain{TokenID: "pol", Chain: chains.Polygon}, pick)
}

func TestSmartPreselect_StablecoinRecipientChain(t *testing.T) {
	ctx := Context{
		Balances: Balances{
			"usdt": {chains.Base: dec("0")},
		},
		RequireBalance: true,
		RecipientChain: chains.Base,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackStableOnRecipient, fallback)
	assert.Equal(t, TokenChain{TokenID: "usdt", Chain: chains.Base}, pick)
}

func TestSmartPreselect_StablecoinFastestChain(t *testing.T) {
	ctx := Context{
		Balances: Balances{
			"usdc": {chains.Base: dec("0")},
		},
		RequireBalance: true,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackStableOnFastest, fallback)
	assert.Equal(t, TokenChain{TokenID: "usdc", Chain: chains.Base}, pick)
}

func TestSmartPreselect_StablecoinUnfundedOnRecipientChain(t *testing.T) {
	ctx := Context{
		Balances:       Balances{},
		Amount:         dec("10"),
		RequireBalance: true,
		RecipientChain: chains.Base,
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackStableUnfunded, fallback)
	assert.Equal(t, TokenChain{TokenID: "usdc", Chain: chains.Base}, pick)
}

func TestSmartPreselect_DefaultAlwaysProducesResult(t *testing.T) {
	pick, fallback := SmartPreselect(Context{RequireBalance: true, Amount: dec("10")})
	assert.Equal(t, FallbackDefault, fallback)
	assert.Equal(t, "usdc", pick.TokenID)
	assert.Equal(t, chains.SpeedOrder[0], pick.Chain)
}

func TestSmartPreselect_DefaultHonorsUSDCFavorite(t *testing.T) {
	ctx := Context{
		FavoriteChainByToken: map[string]chains.Key{"usdc": chains.Base},
		RequireBalance:       true,
		Amount:               dec("10"),
	}

	pick, fallback := SmartPreselect(ctx)
	assert.Equal(t, FallbackDefault, fallback)
	assert.Equal(t, TokenChain{TokenID: "usdc", Chain: chains.Base}, pick)
}

func TestSmartPreselect_Deterministic(t *testing.T) {
	ctx := Context{
		RecentTokenIDs: []string{"usdc", "usdt"},
		Balances: Balances{
			"usdc": {chains.Solana: dec("100"), chains.Base: dec("100")},
			"usdt": {chains.Ethereum: dec("100")},
		},
		Amount:         dec("10"),
		RequireBalance: true,
	}

	first, firstFallback := SmartPreselect(ctx)
	for i := 0; i < 50; i++ {
		pick, fallback := SmartPreselect(ctx)
		assert.Equal(t, first, pick)
		assert.Equal(t, firstFallback, fallback)
	}
}
