// Package chains defines the closed set of networks the wallet can send on,
// along with the per-chain constants the selector and fee builder depend on:
// fee percentages under the gasless fee abstraction, popularity and speed
// orderings, native tokens, and canonical stablecoin addresses.
package chains

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Key identifies a supported network. The set is closed: adding a chain is a
// breaking schema change for every stored preference and payment record.
type Key string

const (
	Solana   Key = "solana"
	Ethereum Key = "ethereum"
	Base     Key = "base"
	Polygon  Key = "polygon"
)

// All lists every supported chain in popularity order (most popular first).
// Iteration over chains must go through this slice (or SpeedOrder) rather
// than a map so selection results are deterministic.
var All = []Key{Solana, Base, Ethereum, Polygon}

// SpeedOrder lists chains fastest/cheapest first. It differs from popularity
// order only in the relative position of Polygon and Ethereum.
var SpeedOrder = []Key{Solana, Base, Polygon, Ethereum}

// Parse converts a string into a Key, rejecting anything outside the closed set.
func Parse(s string) (Key, error) {
	switch Key(s) {
	case Solana, Ethereum, Base, Polygon:
		return Key(s), nil
	}
	return "", fmt.Errorf("unknown chain %q", s)
}

// IsValid reports whether k is a member of the closed chain set.
func (k Key) IsValid() bool {
	_, err := Parse(string(k))
	return err == nil
}

// Fee percentages deducted from the sent token itself. The user never needs
// native gas on any chain; the fee scales with the amount.
var feePct = map[Key]decimal.Decimal{
	Solana:   decimal.NewFromFloat(0.001),
	Base:     decimal.NewFromFloat(0.005),
	Ethereum: decimal.NewFromFloat(0.01),
	Polygon:  decimal.NewFromFloat(0.01),
}

// FeePct returns the fee percentage for sending on k. Unknown chains get the
// highest fee so a bad key can never look cheaper than a real one.
func FeePct(k Key) decimal.Decimal {
	if pct, ok := feePct[k]; ok {
		return pct
	}
	return feePct[Ethereum]
}

// RequiredBalance returns the balance needed to send amount on k:
// amount * (1 + feePct).
func RequiredBalance(k Key, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(FeePct(k)))
}

// PopularityScore returns the base tie-break score for k; higher is more
// popular. Scores are small relative to the selector's criterion weights so
// popularity only decides otherwise-equal candidates.
func PopularityScore(k Key) int {
	for i, c := range All {
		if c == k {
			return len(All) - i
		}
	}
	return 0
}

// NativeToken returns the lower-cased symbol of k's native asset.
// Base settles in ETH.
func NativeToken(k Key) string {
	switch k {
	case Solana:
		return "sol"
	case Ethereum, Base:
		return "eth"
	case Polygon:
		return "pol"
	}
	return ""
}

// Stablecoins lists supported stablecoin symbols in preference order.
var Stablecoins = []string{"usdc", "usdt"}

// USDCAddress maps each chain to its canonical Circle USDC contract or mint
// address. Addresses verified against the official Circle deployments.
var USDCAddress = map[Key]string{
	Solana:   "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	Ethereum: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	Base:     "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	Polygon:  "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
}
