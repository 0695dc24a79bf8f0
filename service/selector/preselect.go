package selector

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
)

// Fallback names the preselect rule that produced a result. Exposed so the
// caller (and metrics) can tell a confident choice from a last resort.
type Fallback string

const (
	FallbackPreferredToken      Fallback = "preferred_token"
	FallbackPreferredOtherChain Fallback = "preferred_token_other_chain"
	FallbackLastWithRecipient   Fallback = "last_used_with_recipient"
	FallbackLastOtherChain      Fallback = "last_used_other_chain"
	FallbackRecentToken         Fallback = "recent_token"
	FallbackLargestBalance      Fallback = "largest_balance"
	FallbackFavoriteChain       Fallback = "favorite_chain"
	FallbackNativeToken         Fallback = "recipient_native_token"
	FallbackStableOnRecipient   Fallback = "stablecoin_recipient_chain"
	FallbackStableOnFastest     Fallback = "stablecoin_fastest_chain"
	FallbackStableUnfunded      Fallback = "stablecoin_unfunded"
	FallbackDefault             Fallback = "default_usdc"
)

// recentTokenWindow is how many of the most recent tokens are considered.
const recentTokenWindow = 3

// SmartPreselect picks the token and chain to pre-fill a send flow with,
// trying a fixed ladder of fallbacks: the stored preferred token, the pair
// last used with this recipient, recent tokens, the largest holding, stored
// favorites, the recipient chain's native token, and finally stablecoins.
// The first rule that matches wins; the ladder always terminates with a
// USDC default, so a result is always produced.
func SmartPreselect(ctx Context) (TokenChain, Fallback) {
	// (1) Preferred token, funded on some chain.
	if p := normalizeToken(ctx.PreferredTokenID); p != "" {
		if ctx.sufficientSomewhere(p) {
			if chain, ok := SelectBestChain(p, ctx.Balances.Chains(p), ctx); ok {
				return TokenChain{TokenID: p, Chain: chain}, FallbackPreferredToken
			}
		}
		// (2) Preferred token lacks a covering balance; stay on the
		// token if any supported chain holds something at all.
		for _, c := range ctx.Balances.Chains(p) {
			if bal, _ := ctx.Balances.Get(p, c); bal.IsPositive() {
				chain, _ := SelectBestChain(p, ctx.Balances.Chains(p), ctx)
				return TokenChain{TokenID: p, Chain: chain}, FallbackPreferredOtherChain
			}
		}
	}

	// (3) Exact token+chain last used with this specific recipient.
	if lu := ctx.LastUsedWithRecipient; lu != nil {
		token := normalizeToken(lu.TokenID)
		if ctx.sufficient(token, lu.Chain) {
			return TokenChain{TokenID: token, Chain: lu.Chain}, FallbackLastWithRecipient
		}
		// (4) Same token on another funded chain.
		var funded []chains.Key
		for _, c := range ctx.Balances.Chains(token) {
			if c != lu.Chain && ctx.sufficient(token, c) {
				funded = append(funded, c)
			}
		}
		if len(funded) > 0 {
			if chain, ok := SelectBestChain(token, funded, ctx); ok {
				return TokenChain{TokenID: token, Chain: chain}, FallbackLastOtherChain
			}
		}
	}

	// (5) Most recently used token that is funded anywhere.
	recent := ctx.RecentTokenIDs
	if len(recent) > recentTokenWindow {
		recent = recent[:recentTokenWindow]
	}
	for _, t := range recent {
		token := normalizeToken(t)
		if token == "" || !ctx.sufficientSomewhere(token) {
			continue
		}
		if chain, ok := SelectBestChain(token, ctx.Balances.Chains(token), ctx); ok {
			return TokenChain{TokenID: token, Chain: chain}, FallbackRecentToken
		}
	}

	// (6) Token with the single largest total balance.
	if token, ok := largestTotalBalance(ctx.Balances); ok {
		if chain, ok := SelectBestChain(token, ctx.Balances.Chains(token), ctx); ok {
			return TokenChain{TokenID: token, Chain: chain}, FallbackLargestBalance
		}
	}

	// (7) A token whose stored favorite chain is currently funded.
	for _, token := range sortedKeys(ctx.FavoriteChainByToken) {
		fav := ctx.FavoriteChainByToken[token]
		if ctx.sufficient(token, fav) {
			return TokenChain{TokenID: normalizeToken(token), Chain: fav}, FallbackFavoriteChain
		}
	}

	rc := ctx.RecipientChain
	if rc.IsValid() {
		// (8) The recipient chain's native token, if held.
		if native := chains.NativeToken(rc); native != "" && ctx.sufficient(native, rc) {
			return TokenChain{TokenID: native, Chain: rc}, FallbackNativeToken
		}
		// (9) A stablecoin on the recipient's chain, if held.
		for _, stable := range chains.Stablecoins {
			if ctx.sufficient(stable, rc) {
				return TokenChain{TokenID: stable, Chain: rc}, FallbackStableOnRecipient
			}
		}
	}

	// (10) A stablecoin on the fastest chain that holds one.
	for _, c := range chains.SpeedOrder {
		for _, stable := range chains.Stablecoins {
			if ctx.sufficient(stable, c) {
				return TokenChain{TokenID: stable, Chain: c}, FallbackStableOnFastest
			}
		}
	}

	// (11) A stablecoin on the recipient's chain even without confirmed
	// balance, as a last resort before the default.
	if rc.IsValid() {
		return TokenChain{TokenID: chains.Stablecoins[0], Chain: rc}, FallbackStableUnfunded
	}

	// Default: USDC on the best chain by recipient > favorite > speed.
	return TokenChain{TokenID: chains.Stablecoins[0], Chain: defaultUSDCChain(ctx)}, FallbackDefault
}

// defaultUSDCChain ranks the default chain for the terminal USDC fallback:
// the recipient's chain, then the stored USDC favorite, then speed order.
func defaultUSDCChain(ctx Context) chains.Key {
	if ctx.RecipientChain.IsValid() {
		return ctx.RecipientChain
	}
	if fav := ctx.favoriteChain(chains.Stablecoins[0]); fav.IsValid() {
		return fav
	}
	return chains.SpeedOrder[0]
}

// largestTotalBalance returns the token with the largest cross-chain total.
// Ties break toward the lexicographically smaller symbol for determinism.
func largestTotalBalance(b Balances) (string, bool) {
	best := ""
	bestTotal := decimal.Zero
	for _, token := range b.Tokens() {
		total := b.Total(token)
		if total.GreaterThan(bestTotal) {
			best, bestTotal = token, total
		}
	}
	return best, best != ""
}

func sortedKeys(m map[string]chains.Key) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
