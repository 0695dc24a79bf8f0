package payload

import (
	"net/url"
	"strings"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/tucanapay/tucana/service/chains"
)

// Solana addresses are base58-encoded 32-byte public keys; the encoded form
// is between 32 and 44 characters.
const (
	minBase58AddressLen = 32
	maxBase58AddressLen = 44
)

// ParseSolanaPay adapts a Solana Pay URI into a normalized request. Two
// shapes exist: the direct form "solana:<address>?query" and the gateway
// form "solana:<https-url>" where the transaction request URL carries the
// fields in its own query string and the recipient must be explicit.
func ParseSolanaPay(raw string) (*Request, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(strings.ToLower(s), solanaScheme) {
		return nil, parseErr(FormatSolanaPayDirect, "missing solana: scheme")
	}
	rest := s[len(solanaScheme):]

	if isAbsoluteHTTPURL(rest) {
		return parseSolanaPayGateway(raw, rest)
	}
	return parseSolanaPayDirect(raw, rest)
}

func parseSolanaPayDirect(raw, rest string) (*Request, error) {
	address := rest
	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		address, query = rest[:i], rest[i+1:]
	}
	if address == "" {
		return nil, parseErr(FormatSolanaPayDirect, "missing recipient address")
	}
	if !IsBase58Address(address) {
		return nil, parseErr(FormatSolanaPayDirect, "recipient is not a valid base58 address")
	}

	q, err := url.ParseQuery(query)
	if err != nil {
		// A broken query string doesn't invalidate the recipient.
		q = url.Values{}
	}

	req := requestFromSolanaQuery(FormatSolanaPayDirect, address, q)
	req.Raw = raw
	return req, nil
}

func parseSolanaPayGateway(raw, rest string) (*Request, error) {
	inner, err := url.Parse(rest)
	if err != nil {
		return nil, parseErr(FormatSolanaPayGateway, "malformed gateway URL")
	}

	q := inner.Query()
	recipient := q.Get("recipient")
	if recipient == "" {
		return nil, parseErr(FormatSolanaPayGateway, "gateway URL missing recipient parameter")
	}
	if !IsBase58Address(recipient) {
		return nil, parseErr(FormatSolanaPayGateway, "recipient is not a valid base58 address")
	}

	req := requestFromSolanaQuery(FormatSolanaPayGateway, recipient, q)
	req.Raw = raw
	return req, nil
}

func requestFromSolanaQuery(format Format, recipient string, q url.Values) *Request {
	req := &Request{
		Format:       format,
		RecipientKey: recipient,
		Amount:       q.Get("amount"),
		SPLToken:     q.Get("spl-token"),
		Label:        q.Get("label"),
		Message:      q.Get("message"),
		Memo:         q.Get("memo"),
		References:   q["reference"],
		ChainHint:    chains.Solana,
	}
	if len(req.References) > 0 {
		req.Reference = req.References[0]
	}
	if req.Message != "" {
		req.Description = req.Message
	} else if req.Label != "" {
		req.Description = req.Label
	}
	return req
}

// IsBase58Address reports whether s is a plausible Solana public key: base58
// alphabet, encoded length in range, and decodable to exactly 32 bytes.
func IsBase58Address(s string) bool {
	if len(s) < minBase58AddressLen || len(s) > maxBase58AddressLen {
		return false
	}
	_, err := solanago.PublicKeyFromBase58(s)
	return err == nil
}
