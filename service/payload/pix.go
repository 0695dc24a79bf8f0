package payload

import (
	"strings"

	"github.com/tucanapay/tucana/service/tlv"
)

// ParsePix adapts a PIX EMV QR payload into a normalized request.
//
// The PIX key (email, phone, CPF/CNPJ, or random key) conventionally lives in
// subfield 01 of the merchant account information template. Real-world
// payloads are not uniform here, so when no key subfield can be
// distinguished the whole template value is carried as an opaque account
// reference rather than failing the scan.
func ParsePix(raw string) (*Request, error) {
	result := tlv.Decode(strings.TrimSpace(raw))
	fields := result.Fields

	mai, ok := tlv.Find(fields, tlv.TagMerchantAccountInfo)
	if !ok || mai.Value == "" {
		return nil, parseErr(FormatPix, "no merchant account information field")
	}

	key := childValue(mai, subTagKey)
	if key == "" {
		key = strings.TrimSpace(mai.Value)
	}
	if key == "" {
		return nil, parseErr(FormatPix, "no PIX key or account reference found")
	}

	req := &Request{
		Format:       FormatPix,
		RecipientKey: key,
		Currency:     tlv.FindValue(fields, tlv.TagCurrency),
		Amount:       tlv.FindValue(fields, tlv.TagAmount),
		MerchantName: tlv.FindValue(fields, tlv.TagMerchantName),
		MerchantCity: tlv.FindValue(fields, tlv.TagMerchantCity),
		Description:  childValue(mai, subTagDescription),
		Raw:          raw,
	}

	if add, ok := tlv.Find(fields, tlv.TagAdditionalData); ok {
		req.Reference = childValue(add, subTagTxID)
	}

	return req, nil
}
