package payload

import (
	"fmt"
	"regexp"
)

var (
	// Non-negative decimal: "12", "12.34", "0.5".
	amountRegex = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

	// ISO 4217 numeric currency code as used by EMV field 53 (e.g. "986").
	currencyNumericRegex = regexp.MustCompile(`^[0-9]{3}$`)

	// Alphabetic ISO 4217 code as used by Mercado Pago links (e.g. "BRL").
	currencyAlphaRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)
)

// ValidationError reports a decodable request that is semantically invalid.
// It is never retryable; the payload itself is wrong.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payment request: %s", e.Reason)
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the request for internal consistency: recipient key shape
// per format, amount syntax, currency code, and base58 rules for every
// Solana key the request carries. It never panics; the result is nil or a
// *ValidationError.
func (r *Request) Validate() error {
	if r == nil {
		return validationErr("nil request")
	}
	if r.Format == FormatUnknown {
		return validationErr("unrecognized format")
	}
	if r.RecipientKey == "" {
		return validationErr("missing recipient key")
	}

	switch r.Format {
	case FormatSolanaPayDirect, FormatSolanaPayGateway:
		if !IsBase58Address(r.RecipientKey) {
			return validationErr("recipient %q is not a valid base58 address", r.RecipientKey)
		}
		if r.SPLToken != "" && !IsBase58Address(r.SPLToken) {
			return validationErr("spl-token mint %q is not a valid base58 address", r.SPLToken)
		}
		for _, ref := range r.References {
			if !IsBase58Address(ref) {
				return validationErr("reference %q is not a valid base58 address", ref)
			}
		}
	}

	if r.Amount != "" && !amountRegex.MatchString(r.Amount) {
		return validationErr("amount %q is not a non-negative decimal", r.Amount)
	}

	if r.Currency != "" {
		switch r.Format {
		case FormatPix:
			if !currencyNumericRegex.MatchString(r.Currency) {
				return validationErr("currency %q is not a 3-digit numeric code", r.Currency)
			}
		case FormatMercadoPago:
			// EMV payloads carry numeric codes, links carry alphabetic ones.
			if !currencyNumericRegex.MatchString(r.Currency) && !currencyAlphaRegex.MatchString(r.Currency) {
				return validationErr("currency %q is not an ISO 4217 code", r.Currency)
			}
		}
	}

	return nil
}
