// Package tlv implements the EMV-style tag-length-value text format used by
// PIX and Mercado Pago QR payloads: a flat sequence of fields, each framed as
// a 2-character tag, a 2-digit decimal length, and a value of exactly that
// many characters. Some tags are templates whose value is itself a TLV
// sequence (merchant account information, additional data).
//
// Decoding is defensive: scanned QR strings are routinely truncated or
// corrupted, so Decode never fails. It returns whatever prefix decoded
// cleanly and flags the result as truncated; callers must check the flag.
package tlv

// Template tags whose value nests another TLV sequence.
const (
	TagMerchantAccountInfo = "26"
	TagAdditionalData      = "62"
)

// Well-known top-level tags.
const (
	TagPayloadFormatIndicator = "00"
	TagCurrency               = "53"
	TagAmount                 = "54"
	TagMerchantName           = "59"
	TagMerchantCity           = "60"
)

// maxDepth bounds template recursion. Real payloads nest exactly one level;
// anything deeper is treated as opaque value text.
const maxDepth = 4

// Field is a single decoded TLV entry. Length always equals len(Value).
// Children is non-nil only when the tag is a template and its value decoded
// cleanly as a complete nested sequence.
type Field struct {
	Tag      string  `json:"tag"`
	Length   int     `json:"length"`
	Value    string  `json:"value"`
	Children []Field `json:"children,omitempty"`
}

// Result is the outcome of a Decode call. Truncated is set when the input
// ended mid-field or contained a malformed length; Fields then holds the
// fields decoded before the malformation.
type Result struct {
	Fields    []Field `json:"fields"`
	Truncated bool    `json:"truncated,omitempty"`
}

func isTemplate(tag string) bool {
	return tag == TagMerchantAccountInfo || tag == TagAdditionalData
}

// Decode scans payload left to right and returns every well-formed field.
// It never panics and never returns an error: malformed or truncated input
// yields a best-effort partial result with Truncated set.
func Decode(payload string) Result {
	fields, truncated := decode(payload, 0)
	return Result{Fields: fields, Truncated: truncated}
}

func decode(s string, depth int) ([]Field, bool) {
	var fields []Field
	pos := 0
	for pos < len(s) {
		// A field needs at least tag(2) + length(2).
		if pos+4 > len(s) {
			return fields, true
		}
		tag := s[pos : pos+2]
		length, ok := parseLength(s[pos+2 : pos+4])
		if !ok || length <= 0 {
			return fields, true
		}
		if pos+4+length > len(s) {
			return fields, true
		}
		value := s[pos+4 : pos+4+length]

		field := Field{Tag: tag, Length: length, Value: value}
		if isTemplate(tag) && depth < maxDepth {
			// Attach children only when the nested sequence decodes
			// completely; a partially valid template stays opaque so
			// its raw value survives re-encoding.
			children, nestedTruncated := decode(value, depth+1)
			if !nestedTruncated && len(children) > 0 {
				field.Children = children
			}
		}
		fields = append(fields, field)
		pos += 4 + length
	}
	return fields, false
}

// parseLength reads a 2-digit decimal length. Anything non-numeric means the
// framing is broken and the caller stops.
func parseLength(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	n := 0
	for i := 0; i < 2; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// Encode is the inverse of Decode: it emits tag + zero-padded length + value
// for each field, materializing template values from Children first. For any
// field list produced by a complete Decode, Decode(Encode(fields)) yields the
// same fields.
func Encode(fields []Field) string {
	var out []byte
	for _, f := range fields {
		value := f.Value
		if len(f.Children) > 0 {
			value = Encode(f.Children)
		}
		out = append(out, f.Tag...)
		out = append(out, byte('0'+len(value)/10%10), byte('0'+len(value)%10))
		out = append(out, value...)
	}
	return string(out)
}

// Find returns the first top-level field with the given tag.
func Find(fields []Field, tag string) (Field, bool) {
	for _, f := range fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// FindValue returns the value of the first top-level field with the given
// tag, or "" when absent.
func FindValue(fields []Field, tag string) string {
	f, ok := Find(fields, tag)
	if !ok {
		return ""
	}
	return f.Value
}
