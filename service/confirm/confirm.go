// Package confirm composes a selection result with the fee model, an
// optional auto-bridge plan, a time estimate, and risk warnings into the
// single confirmation object the wallet UI presents before a send.
package confirm

import (
	"github.com/shopspring/decimal"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/selector"
)

// Warning types. Each check is independent; a confirmation carries every
// warning that applies.
const (
	WarnLargeAmount        = "large_amount"
	WarnFirstTimeRecipient = "first_time_recipient"
	WarnChainMismatch      = "chain_mismatch"
	WarnLargeBridge        = "large_bridge"
)

// bridgeFeePct is charged on the bridged portion of an auto-bridge plan.
var bridgeFeePct = decimal.NewFromFloat(0.005)

// largeAmountThreshold triggers the large-amount warning.
var largeAmountThreshold = decimal.NewFromInt(10000)

// Warning flags a condition the user should see before confirming.
type Warning struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Fees breaks down what the payment costs on top of the amount. Under the
// gasless fee abstraction everything is denominated in the sent token.
type Fees struct {
	NetworkFee decimal.Decimal `json:"network_fee"`
	BridgeFee  decimal.Decimal `json:"bridge_fee"`
	Total      decimal.Decimal `json:"total"`
}

// Confirmation is handed to the UI for display and to the transfer executor
// to act on.
type Confirmation struct {
	Recipient     string                   `json:"recipient"`
	Amount        decimal.Decimal          `json:"amount"`
	TokenID       string                   `json:"token_id"`
	Chain         chains.Key               `json:"chain"`
	Fees          Fees                     `json:"fees"`
	AutoBridge    *selector.AutoBridgePlan `json:"auto_bridge,omitempty"`
	EstimatedTime string                   `json:"estimated_time"`
	Warnings      []Warning                `json:"warnings,omitempty"`
}

// Params are the inputs to Build. RecipientChain and IsFirstTimeRecipient
// are optional signals used only for warning generation.
type Params struct {
	Recipient            string
	Amount               decimal.Decimal
	TokenID              string
	Chain                chains.Key
	AutoBridge           *selector.AutoBridgePlan
	RecipientChain       chains.Key
	IsFirstTimeRecipient bool
}

// Build computes fees, the time estimate, and all applicable warnings.
// Pure function: same params, same confirmation.
func Build(p Params) Confirmation {
	c := Confirmation{
		Recipient:  p.Recipient,
		Amount:     p.Amount,
		TokenID:    p.TokenID,
		Chain:      p.Chain,
		AutoBridge: p.AutoBridge,
	}

	c.Fees.NetworkFee = p.Amount.Mul(chains.FeePct(p.Chain))
	if p.AutoBridge != nil {
		c.Fees.BridgeFee = p.AutoBridge.BridgeAmount.Mul(bridgeFeePct)
	}
	c.Fees.Total = c.Fees.NetworkFee.Add(c.Fees.BridgeFee)

	c.EstimatedTime = estimateTime(p.Chain, p.AutoBridge != nil)
	c.Warnings = buildWarnings(p)
	return c
}

func estimateTime(chain chains.Key, bridging bool) string {
	switch {
	case bridging:
		return "~2 minutes"
	case chain == chains.Ethereum || chain == chains.Polygon:
		return "~1 minute"
	default:
		return "~30 seconds"
	}
}

func buildWarnings(p Params) []Warning {
	var warnings []Warning

	if p.Amount.GreaterThan(largeAmountThreshold) {
		warnings = append(warnings, Warning{
			Type:    WarnLargeAmount,
			Message: "This is a large amount. Double-check the recipient before sending.",
		})
	}
	if p.IsFirstTimeRecipient {
		warnings = append(warnings, Warning{
			Type:    WarnFirstTimeRecipient,
			Message: "You have not sent to this recipient before.",
		})
	}
	if p.RecipientChain != "" && p.RecipientChain != p.Chain {
		warnings = append(warnings, Warning{
			Type:    WarnChainMismatch,
			Message: "The recipient prefers a different network than the one selected.",
		})
	}
	if p.AutoBridge != nil && p.Amount.IsPositive() {
		half := p.Amount.Div(decimal.NewFromInt(2))
		if p.AutoBridge.BridgeAmount.GreaterThan(half) {
			warnings = append(warnings, Warning{
				Type:    WarnLargeBridge,
				Message: "Most of this payment is bridged from other networks and may take several minutes.",
			})
		}
	}
	return warnings
}
