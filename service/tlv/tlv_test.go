package tlv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePix builds a realistic PIX payload from structured fields so tests
// never depend on hand-counted lengths.
func samplePix(t *testing.T) string {
	t.Helper()
	return Encode([]Field{
		{Tag: "00", Value: "01"},
		{Tag: "26", Children: []Field{
			{Tag: "00", Value: "br.gov.bcb.pix"},
			{Tag: "01", Value: "user@bank.com"},
		}},
		{Tag: "53", Value: "986"},
		{Tag: "54", Value: "12.34"},
		{Tag: "59", Value: "ACME LTDA"},
		{Tag: "60", Value: "SAO PAULO"},
		{Tag: "62", Children: []Field{
			{Tag: "05", Value: "INV123"},
		}},
	})
}

func TestDecode_PixPayload(t *testing.T) {
	result := Decode(samplePix(t))
	require.False(t, result.Truncated)
	require.Len(t, result.Fields, 7)

	assert.Equal(t, "01", FindValue(result.Fields, "00"))
	assert.Equal(t, "986", FindValue(result.Fields, TagCurrency))
	assert.Equal(t, "12.34", FindValue(result.Fields, TagAmount))
	assert.Equal(t, "ACME LTDA", FindValue(result.Fields, TagMerchantName))

	mai, ok := Find(result.Fields, TagMerchantAccountInfo)
	require.True(t, ok)
	require.Len(t, mai.Children, 2)
	assert.Equal(t, "br.gov.bcb.pix", mai.Children[0].Value)
	assert.Equal(t, "user@bank.com", mai.Children[1].Value)
	assert.Equal(t, len(mai.Value), mai.Length)
}

func TestDecode_LengthMatchesValue(t *testing.T) {
	result := Decode(samplePix(t))
	var check func(fields []Field)
	check = func(fields []Field) {
		for _, f := range fields {
			assert.Equal(t, len(f.Value), f.Length, "tag %s", f.Tag)
			check(f.Children)
		}
	}
	check(result.Fields)
}

func TestRoundTrip(t *testing.T) {
	original := Decode(samplePix(t))
	require.False(t, original.Truncated)

	reencoded := Encode(original.Fields)
	assert.Equal(t, samplePix(t), reencoded)

	redecoded := Decode(reencoded)
	require.False(t, redecoded.Truncated)
	assert.Equal(t, original.Fields, redecoded.Fields)
}

func TestDecode_Truncated(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		fields  int
	}{
		{name: "empty", payload: "", fields: 0},
		{name: "partial header", payload: "000", fields: 0},
		{name: "value shorter than length", payload: "0005ab", fields: 0},
		{name: "non-numeric length", payload: "00xx01", fields: 0},
		{name: "zero length", payload: "0000", fields: 0},
		{name: "valid field then garbage", payload: "000201" + "53", fields: 1},
		{name: "valid field then short value", payload: "000201" + "5303" + "98", fields: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result Result
			assert.NotPanics(t, func() { result = Decode(tt.payload) })
			if tt.payload == "" {
				assert.False(t, result.Truncated)
			} else {
				assert.True(t, result.Truncated)
			}
			assert.Len(t, result.Fields, tt.fields)
		})
	}
}

func TestDecode_GarbageNeverPanics(t *testing.T) {
	inputs := []string{
		"hello world",
		strings.Repeat("9", 101),
		"00\x0002",
		"0002\xff\xfe",
		"260426042604",
		strings.Repeat("000201", 50) + "xx",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Decode(in) }, "input %q", in)
	}
}

func TestDecode_PartialTemplateStaysOpaque(t *testing.T) {
	// A template whose value is not itself valid TLV keeps its raw value
	// and gets no children.
	payload := Encode([]Field{
		{Tag: "26", Value: "not-nested-tlv"},
	})
	result := Decode(payload)
	require.False(t, result.Truncated)
	require.Len(t, result.Fields, 1)
	assert.Empty(t, result.Fields[0].Children)
	assert.Equal(t, "not-nested-tlv", result.Fields[0].Value)
}

func TestEncode_ZeroPadsLength(t *testing.T) {
	out := Encode([]Field{{Tag: "53", Value: "986"}})
	assert.Equal(t, "5303986", out)
}

func TestFind(t *testing.T) {
	result := Decode(samplePix(t))
	_, ok := Find(result.Fields, "99")
	assert.False(t, ok)
	assert.Empty(t, FindValue(result.Fields, "99"))
}
