package payload

import (
	"net/url"
	"strings"

	"github.com/tucanapay/tucana/service/tlv"
)

// Mercado Pago links accept either English or Spanish query parameter names.
var (
	mpAmountParams      = []string{"amount", "monto"}
	mpCurrencyParams    = []string{"currency", "moneda"}
	mpDescriptionParams = []string{"description", "descripcion", "concepto"}
	mpReferenceParams   = []string{"reference", "referencia", "external_reference"}
)

// ParseMercadoPago adapts either Mercado Pago shape into a normalized
// request: an EMV TLV payload carrying Mercado Pago's PSP GUID, or a bare
// HTTPS checkout/money-request link.
func ParseMercadoPago(raw string) (*Request, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return parseMercadoPagoURL(raw, s)
	}
	return parseMercadoPagoEMV(raw, s)
}

func parseMercadoPagoEMV(raw, s string) (*Request, error) {
	result := tlv.Decode(s)
	fields := result.Fields

	mai, ok := tlv.Find(fields, tlv.TagMerchantAccountInfo)
	if !ok {
		return nil, parseErr(FormatMercadoPago, "no merchant account information field")
	}

	guid := strings.ToLower(childValue(mai, subTagGUID))
	if guid == "" {
		guid = strings.ToLower(mai.Value)
	}
	if !strings.Contains(guid, mercadoPagoMarker) {
		return nil, parseErr(FormatMercadoPago, "no Mercado Pago identifier in payload")
	}

	// Subfield 01 carries the collector account; some payloads only carry
	// the GUID, in which case the whole template value is the reference.
	account := childValue(mai, subTagKey)
	if account == "" {
		account = strings.TrimSpace(mai.Value)
	}
	if account == "" {
		return nil, parseErr(FormatMercadoPago, "no collector account found")
	}

	req := &Request{
		Format:       FormatMercadoPago,
		RecipientKey: account,
		Currency:     tlv.FindValue(fields, tlv.TagCurrency),
		Amount:       tlv.FindValue(fields, tlv.TagAmount),
		MerchantName: tlv.FindValue(fields, tlv.TagMerchantName),
		MerchantCity: tlv.FindValue(fields, tlv.TagMerchantCity),
		Raw:          raw,
	}
	if add, ok := tlv.Find(fields, tlv.TagAdditionalData); ok {
		req.Reference = childValue(add, subTagTxID)
	}
	return req, nil
}

func parseMercadoPagoURL(raw, s string) (*Request, error) {
	u, err := url.Parse(s)
	if err != nil || !isMercadoPagoURL(s) {
		return nil, parseErr(FormatMercadoPago, "not a Mercado Pago URL")
	}

	// Collector / payment ids appear as purely numeric path segments.
	var recipient string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" && isAllDigits(seg) {
			recipient = seg
		}
	}
	if recipient == "" {
		return nil, parseErr(FormatMercadoPago, "no numeric collector id in URL path")
	}

	q := u.Query()
	return &Request{
		Format:       FormatMercadoPago,
		RecipientKey: recipient,
		Amount:       firstParam(q, mpAmountParams),
		Currency:     firstParam(q, mpCurrencyParams),
		Description:  firstParam(q, mpDescriptionParams),
		Reference:    firstParam(q, mpReferenceParams),
		Raw:          raw,
	}, nil
}

// firstParam returns the first non-empty value among the given parameter
// name aliases.
func firstParam(q url.Values, names []string) string {
	for _, name := range names {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
