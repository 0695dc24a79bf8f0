package payload

import (
	"net/url"
	"strings"

	"github.com/tucanapay/tucana/service/tlv"
)

const (
	// emvPrefix is the EMV Payload Format Indicator: tag 00, length 02,
	// value "01". Every PIX and Mercado Pago EMV QR starts with it.
	emvPrefix = "000201"

	// pixGUID identifies the Brazilian central bank PIX arrangement in the
	// merchant account information template.
	pixGUID = "br.gov.bcb.pix"

	// mercadoPagoMarker appears in Mercado Pago's PSP GUID inside EMV
	// payloads and in its link hosts.
	mercadoPagoMarker = "mercadopago"

	solanaScheme = "solana:"
)

// Subfield tags inside the merchant account information template (26) and
// the additional data template (62). The exact numbering follows observed
// PIX payloads: GUID at 00, key at 01, free-text info at 02, txid at 05.
const (
	subTagGUID        = "00"
	subTagKey         = "01"
	subTagDescription = "02"
	subTagTxID        = "05"
)

// mercadoPagoHosts are the link hosts recognized as Mercado Pago / Mercado
// Libre checkout or money-request URLs.
var mercadoPagoHosts = []string{"mercadopago.com", "mercadolibre.com", "mpago.la"}

// Classify inspects raw and decides which adapter pipeline applies. It never
// fails: anything unrecognized is FormatUnknown.
func Classify(raw string) Format {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if isMercadoPagoURL(s) {
			return FormatMercadoPago
		}
		return FormatUnknown
	}

	if strings.HasPrefix(lower, solanaScheme) {
		if isAbsoluteHTTPURL(s[len(solanaScheme):]) {
			return FormatSolanaPayGateway
		}
		return FormatSolanaPayDirect
	}

	if strings.HasPrefix(s, emvPrefix) {
		return classifyEMV(s)
	}

	return FormatUnknown
}

// classifyEMV decodes the TLV payload and distinguishes PIX from Mercado
// Pago by the GUID carried in the merchant account information template.
func classifyEMV(s string) Format {
	result := tlv.Decode(s)
	mai, ok := tlv.Find(result.Fields, tlv.TagMerchantAccountInfo)
	if !ok {
		return FormatUnknown
	}

	guid := strings.ToLower(childValue(mai, subTagGUID))
	if guid == "" {
		// No distinguishable GUID subfield; fall back to matching the
		// whole template value.
		guid = strings.ToLower(mai.Value)
	}

	if strings.Contains(guid, pixGUID) {
		return FormatPix
	}
	if strings.Contains(guid, mercadoPagoMarker) {
		return FormatMercadoPago
	}
	return FormatUnknown
}

// childValue returns the value of the child with the given tag, or "".
func childValue(f tlv.Field, tag string) string {
	for _, c := range f.Children {
		if c.Tag == tag {
			return c.Value
		}
	}
	return ""
}

// isMercadoPagoURL reports whether s is an HTTP(S) URL on a Mercado Pago host.
func isMercadoPagoURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, marker := range mercadoPagoHosts {
		if host == marker || strings.HasSuffix(host, "."+marker) {
			return true
		}
	}
	return false
}

// isAbsoluteHTTPURL reports whether s parses as an absolute http(s) URL.
func isAbsoluteHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
