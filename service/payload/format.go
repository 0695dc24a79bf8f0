// Package payload turns raw scanned or pasted payment strings — PIX and
// Mercado Pago EMV QR codes, Mercado Pago links, Solana Pay URIs — into a
// single normalized request the rest of the engine operates on.
//
// Everything in this package is a pure function of its input: no I/O, no
// clocks, no shared state. Parse and validation failures are returned as
// values; nothing here panics on hostile input.
package payload

import (
	"fmt"

	"github.com/tucanapay/tucana/service/chains"
)

// Format identifies which adapter pipeline produced a request.
type Format string

const (
	FormatPix              Format = "pix"
	FormatMercadoPago      Format = "mercadopago"
	FormatSolanaPayDirect  Format = "solana-pay-direct"
	FormatSolanaPayGateway Format = "solana-pay-gateway"
	FormatUnknown          Format = "unknown"
)

// Request is the normalized payment request every adapter produces.
// RecipientKey is non-empty for every format other than FormatUnknown;
// all other fields are optional and empty when the payload omits them.
type Request struct {
	Format       Format     `json:"format"`
	RecipientKey string     `json:"recipient_key"`
	Amount       string     `json:"amount,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	MerchantName string     `json:"merchant_name,omitempty"`
	MerchantCity string     `json:"merchant_city,omitempty"`
	Description  string     `json:"description,omitempty"`
	Reference    string     `json:"reference,omitempty"`
	References   []string   `json:"references,omitempty"`
	SPLToken     string     `json:"spl_token,omitempty"`
	Label        string     `json:"label,omitempty"`
	Message      string     `json:"message,omitempty"`
	Memo         string     `json:"memo,omitempty"`
	ChainHint    chains.Key `json:"chain_hint,omitempty"`
	Raw          string     `json:"raw"`
}

// ParseError reports a payload that could not be adapted into a Request.
// It is a terminal outcome for the scanned string, not a transient failure.
type ParseError struct {
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %s payload: %s", e.Format, e.Reason)
}

func parseErr(format Format, reason string) error {
	return &ParseError{Format: format, Reason: reason}
}

// Parse classifies raw and runs the matching adapter. Unrecognized payloads
// return a ParseError with FormatUnknown.
func Parse(raw string) (*Request, error) {
	switch format := Classify(raw); format {
	case FormatPix:
		return ParsePix(raw)
	case FormatMercadoPago:
		return ParseMercadoPago(raw)
	case FormatSolanaPayDirect, FormatSolanaPayGateway:
		return ParseSolanaPay(raw)
	default:
		return nil, parseErr(FormatUnknown, "unrecognized payment format")
	}
}
