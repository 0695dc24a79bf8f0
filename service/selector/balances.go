// Package selector decides which token and chain a payment should be sent
// on, given the user's multi-chain balances, stored preferences, and the
// recipient's preferred chain. All functions are pure and deterministic:
// identical inputs produce identical outputs, and map iteration always goes
// through canonical chain order or sorted token ids.
package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
)

// Balances maps lower-cased token symbols to per-chain balances. A chain key
// present with a zero balance means the token exists on that chain but the
// user holds none of it; an absent key means the chain is not supported for
// the token.
type Balances map[string]map[chains.Key]decimal.Decimal

// Get returns the balance of token on chain. ok is false when the chain is
// not supported for the token.
func (b Balances) Get(token string, chain chains.Key) (decimal.Decimal, bool) {
	perChain, ok := b[normalizeToken(token)]
	if !ok {
		return decimal.Zero, false
	}
	bal, ok := perChain[chain]
	return bal, ok
}

// Chains returns the chains the token is supported on, in popularity order.
func (b Balances) Chains(token string) []chains.Key {
	perChain, ok := b[normalizeToken(token)]
	if !ok {
		return nil
	}
	var out []chains.Key
	for _, c := range chains.All {
		if _, ok := perChain[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Total returns the token's balance summed across all chains.
func (b Balances) Total(token string) decimal.Decimal {
	total := decimal.Zero
	for _, bal := range b[normalizeToken(token)] {
		total = total.Add(bal)
	}
	return total
}

// Tokens returns all token symbols in sorted order.
func (b Balances) Tokens() []string {
	out := make([]string, 0, len(b))
	for t := range b {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// ParseBalances converts a wire-format balances map (token -> chain ->
// decimal string) into Balances, validating every chain key and decimal.
func ParseBalances(raw map[string]map[string]string) (Balances, error) {
	balances := make(Balances, len(raw))
	for token, perChain := range raw {
		converted := make(map[chains.Key]decimal.Decimal, len(perChain))
		for chainStr, balStr := range perChain {
			chain, err := chains.Parse(chainStr)
			if err != nil {
				return nil, fmt.Errorf("balances[%s]: %w", token, err)
			}
			bal, err := decimal.NewFromString(balStr)
			if err != nil || bal.IsNegative() {
				return nil, fmt.Errorf("balances[%s][%s]: %q is not a non-negative decimal", token, chainStr, balStr)
			}
			converted[chain] = bal
		}
		balances[normalizeToken(token)] = converted
	}
	return balances, nil
}

// TokenChain is a concrete (token, chain) selection.
type TokenChain struct {
	TokenID string     `json:"token_id"`
	Chain   chains.Key `json:"chain"`
}

// Context carries everything the selector considers: the user's stored
// preferences, recent usage, the recipient's preferred chain when known, a
// chain pre-selected in the calling UI, and the balances snapshot.
type Context struct {
	PreferredTokenID      string                `json:"preferred_token_id,omitempty"`
	FavoriteChainByToken  map[string]chains.Key `json:"favorite_chain_by_token,omitempty"`
	RecentTokenIDs        []string              `json:"recent_token_ids,omitempty"`
	RecipientChain        chains.Key            `json:"recipient_chain,omitempty"`
	PreselectedChain      chains.Key            `json:"preselected_chain,omitempty"`
	Balances              Balances              `json:"balances"`
	Amount                decimal.Decimal       `json:"amount"`
	RequireBalance        bool                  `json:"require_balance"`
	LastUsedWithRecipient *TokenChain           `json:"last_used_with_recipient,omitempty"`
}

// favoriteChain returns the stored favorite chain for token, or "".
func (c Context) favoriteChain(token string) chains.Key {
	return c.FavoriteChainByToken[normalizeToken(token)]
}

// sufficient reports whether token's balance on chain covers the context
// amount plus the chain's fee. With RequireBalance unset any positive
// balance qualifies.
func (c Context) sufficient(token string, chain chains.Key) bool {
	bal, ok := c.Balances.Get(token, chain)
	if !ok {
		return false
	}
	if !c.RequireBalance {
		return bal.IsPositive()
	}
	return bal.GreaterThanOrEqual(chains.RequiredBalance(chain, c.Amount))
}

// sufficientSomewhere reports whether any chain covers the amount for token.
func (c Context) sufficientSomewhere(token string) bool {
	for _, chain := range c.Balances.Chains(token) {
		if c.sufficient(token, chain) {
			return true
		}
	}
	return false
}
