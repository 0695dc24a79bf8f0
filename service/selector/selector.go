package selector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
)

// Criterion weights for SelectBestChain. Sufficiency dominates everything
// else: a chain that can actually cover the payment beats any combination of
// the softer criteria on a chain that cannot.
const (
	scoreSufficientBalance   = 1000
	scoreFavoriteChain       = 500
	scoreBalanceCap          = 300
	scoreRecipientChainMatch = 200
	scoreRecipientShortfall  = -100
	scorePreselectedChain    = 100
)

// SelectBestChain picks the best chain to send token on, out of available.
// Chains without any balance are excluded up front; when none hold a
// balance, all available chains compete on popularity alone. Returns false
// only when available is empty.
func SelectBestChain(token string, available []chains.Key, ctx Context) (chains.Key, bool) {
	token = normalizeToken(token)
	if len(available) == 0 {
		return "", false
	}

	candidates := make([]chains.Key, 0, len(available))
	for _, c := range canonicalOrder(available) {
		if bal, ok := ctx.Balances.Get(token, c); ok && bal.IsPositive() {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		// Nothing funded anywhere; fall back to popularity.
		return canonicalOrder(available)[0], true
	}

	best := candidates[0]
	bestScore := scoreChain(token, candidates[0], ctx)
	for _, c := range candidates[1:] {
		if s := scoreChain(token, c, ctx); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, true
}

// scoreChain computes the additive score for sending token on c.
func scoreChain(token string, c chains.Key, ctx Context) int {
	bal, _ := ctx.Balances.Get(token, c)
	required := chains.RequiredBalance(c, ctx.Amount)
	sufficient := bal.GreaterThanOrEqual(required)

	score := 0
	if sufficient {
		score += scoreSufficientBalance
	}
	if ctx.favoriteChain(token) == c {
		score += scoreFavoriteChain
	}
	score += balanceScore(bal, required)
	if ctx.RecipientChain == c {
		if sufficient {
			score += scoreRecipientChainMatch
		} else {
			score += scoreRecipientShortfall
		}
	}
	if ctx.PreselectedChain == c {
		score += scorePreselectedChain
	}
	return score + chains.PopularityScore(c)
}

// balanceScore awards up to scoreBalanceCap points proportional to how far
// the balance exceeds the required amount (full marks at 3x). With a zero
// required amount the raw balance is used, capped.
func balanceScore(bal, required decimal.Decimal) int {
	var pts decimal.Decimal
	if required.IsPositive() {
		pts = bal.Div(required).Mul(decimal.NewFromInt(100))
	} else {
		pts = bal
	}
	limit := decimal.NewFromInt(scoreBalanceCap)
	if pts.GreaterThan(limit) {
		pts = limit
	}
	if pts.IsNegative() {
		return 0
	}
	return int(pts.IntPart())
}

// canonicalOrder returns the given chains sorted into popularity order.
func canonicalOrder(available []chains.Key) []chains.Key {
	set := make(map[chains.Key]bool, len(available))
	for _, c := range available {
		set[c] = true
	}
	out := make([]chains.Key, 0, len(available))
	for _, c := range chains.All {
		if set[c] {
			out = append(out, c)
		}
	}
	// Preserve anything outside the closed set at the end so a caller bug
	// degrades to a stable ordering instead of dropping entries.
	for _, c := range available {
		if !c.IsValid() && set[c] {
			out = append(out, c)
			set[c] = false
		}
	}
	return out
}

// CanSendResult answers "can I send this amount from this chain".
// SuggestedChain is set when another chain of the same token could cover the
// payment; the caller decides whether to switch, nothing is substituted
// silently.
type CanSendResult struct {
	CanSend        bool       `json:"can_send"`
	Reason         string     `json:"reason,omitempty"`
	SuggestedChain chains.Key `json:"suggested_chain,omitempty"`
}

// CanSendFromChain checks whether amount of token can be sent from chain,
// accounting for the chain's fee on top of the amount.
func CanSendFromChain(token string, chain chains.Key, amount decimal.Decimal, balances Balances) CanSendResult {
	token = normalizeToken(token)
	required := chains.RequiredBalance(chain, amount)
	bal, supported := balances.Get(token, chain)
	if supported && bal.GreaterThanOrEqual(required) {
		return CanSendResult{CanSend: true}
	}

	reason := fmt.Sprintf("insufficient %s balance on %s: have %s, need %s (amount + fee)",
		token, chain, bal.String(), required.String())
	if !supported {
		reason = fmt.Sprintf("%s is not supported on %s", token, chain)
	}

	result := CanSendResult{CanSend: false, Reason: reason}
	for _, other := range balances.Chains(token) {
		if other == chain {
			continue
		}
		otherBal, _ := balances.Get(token, other)
		if otherBal.GreaterThanOrEqual(chains.RequiredBalance(other, amount)) {
			result.SuggestedChain = other
			break
		}
	}
	return result
}

// AutoBridgePlan describes how to cover a shortfall on the target chain by
// bridging the same token in from other chains.
type AutoBridgePlan struct {
	FromChains   []chains.Key    `json:"from_chains"`
	BridgeAmount decimal.Decimal `json:"bridge_amount"`
}

// PlanAutoBridge builds a bridge plan for sending amount of token on target
// when the target chain alone cannot cover it. Source chains are consumed in
// speed order. Returns false when no bridge is needed or when the combined
// balances still fall short.
func PlanAutoBridge(token string, target chains.Key, amount decimal.Decimal, balances Balances) (*AutoBridgePlan, bool) {
	token = normalizeToken(token)
	required := chains.RequiredBalance(target, amount)
	bal, _ := balances.Get(token, target)
	if bal.GreaterThanOrEqual(required) {
		return nil, false
	}

	shortfall := required.Sub(bal)
	plan := &AutoBridgePlan{BridgeAmount: shortfall}
	remaining := shortfall
	for _, c := range chains.SpeedOrder {
		if c == target {
			continue
		}
		srcBal, ok := balances.Get(token, c)
		if !ok || !srcBal.IsPositive() {
			continue
		}
		plan.FromChains = append(plan.FromChains, c)
		remaining = remaining.Sub(srcBal)
		if !remaining.IsPositive() {
			return plan, true
		}
	}
	return nil, false
}
