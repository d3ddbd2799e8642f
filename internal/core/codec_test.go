package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

func pv(value, lang, color string) catalog.PropertyValue {
	return catalog.PropertyValue{PropertyName: "Color", Value: value, LanguageCode: lang, ColorCode: color}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := DefaultCodec()

	tests := []struct {
		name   string
		values []catalog.PropertyValue
	}{
		{"single value", []catalog.PropertyValue{pv("Red", "", "")}},
		{"several values", []catalog.PropertyValue{pv("Red", "", ""), pv("Green", "", ""), pv("Blue", "", "")}},
		{"with language", []catalog.PropertyValue{pv("Rot", "de-DE", ""), pv("Red", "en-US", "")}},
		{"with color", []catalog.PropertyValue{pv("Red", "", "#FF0000")}},
		{"with language and color", []catalog.PropertyValue{pv("Rouge", "fr-FR", "#FF0000"), pv("Red", "en-US", "#FF0000")}},
		{"value separator inside", []catalog.PropertyValue{pv("a;b", "", "")}},
		{"language separator inside", []catalog.PropertyValue{pv("snake__case", "en-US", "")}},
		{"color separator inside", []catalog.PropertyValue{pv("left|right", "", "#000")}},
		{"language ending in separator start", []catalog.PropertyValue{pv("x", "e_", "")}},
		{"value ending in separator start", []catalog.PropertyValue{pv("_x_", "en-US", "")}},
		{"escape marker inside", []catalog.PropertyValue{pv("it`s", "", "")}},
		{"escape marker at edges", []catalog.PropertyValue{pv("`quoted`", "", "")}},
		{"only escape markers", []catalog.PropertyValue{pv("``", "", "")}},
		{"everything at once", []catalog.PropertyValue{pv("a;b__c|d`e", "en-US", "x|y")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := codec.Encode(tt.values, false)
			got := codec.Decode(cell, "Color")
			assert.Equal(t, tt.values, got, "cell: %q", cell)
		})
	}
}

func TestCodec_EncodeFormat(t *testing.T) {
	codec := DefaultCodec()

	tests := []struct {
		name   string
		values []catalog.PropertyValue
		want   string
	}{
		{"plain", []catalog.PropertyValue{pv("a", "", ""), pv("b", "", "")}, "a;b"},
		{"language prefix", []catalog.PropertyValue{pv("a", "en-US", "")}, "en-US__a"},
		{"color suffix", []catalog.PropertyValue{pv("a", "", "red")}, "a|red"},
		{"escaped value", []catalog.PropertyValue{pv("a;b", "", "")}, "`a;b`"},
		{"doubled escape", []catalog.PropertyValue{pv("a`b", "", "")}, "`a``b`"},
		{"partial language separator escaped", []catalog.PropertyValue{pv("x", "e_", "")}, "`e_`__x"},
		{"empty literal dropped", []catalog.PropertyValue{pv("", "en-US", ""), pv("a", "", "")}, "a"},
		{"duplicates written once", []catalog.PropertyValue{pv("a", "", ""), pv("b", "", ""), pv("a", "", "")}, "a;b"},
		{"no values", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.Encode(tt.values, false))
		})
	}
}

func TestCodec_EncodeDictionaryUsesAlias(t *testing.T) {
	codec := DefaultCodec()
	prop := catalog.Property{
		Name:       "Brand",
		Dictionary: true,
		Values: []catalog.PropertyValue{
			{Value: "Acme Corp", Alias: "acme", LanguageCode: "en-US"},
			{Value: "Globex"},
			{Value: "Acme Corp", Alias: "acme", LanguageCode: "de-DE"},
			{},
		},
	}

	assert.Equal(t, "acme;Globex", codec.EncodeProperty(prop))
}

func TestCodec_DecodeEmptyCell(t *testing.T) {
	codec := DefaultCodec()

	got := codec.Decode("", "Material")
	require.Len(t, got, 1)
	assert.Equal(t, "Material", got[0].PropertyName)
	assert.Empty(t, got[0].Value)

	got = codec.Decode(";;", "Material")
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Value)
}

func TestCodec_DecodeSplitsOnce(t *testing.T) {
	codec := DefaultCodec()

	got := codec.Decode("en-US__a__b|c|d", "P")
	require.Len(t, got, 1)
	assert.Equal(t, "en-US", got[0].LanguageCode)
	assert.Equal(t, "a__b", got[0].Value)
	assert.Equal(t, "c|d", got[0].ColorCode)
}

func TestCodec_DecodeSkipsEmptyTokens(t *testing.T) {
	codec := DefaultCodec()

	got := codec.Decode("a;;b;", "P")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Value)
	assert.Equal(t, "b", got[1].Value)
}

func TestCodec_CustomSeparators(t *testing.T) {
	codec := Codec{ValueSeparator: ",", LanguageSeparator: ":", ColorSeparator: "#", Escape: "'"}
	require.NoError(t, codec.Validate())

	values := []catalog.PropertyValue{pv("x,y", "en", "ff"), pv("it's", "", "")}
	cell := codec.Encode(values, false)
	assert.Equal(t, "en:'x,y'#ff,'it''s'", cell)
	assert.Equal(t, values, codec.Decode(cell, "Color"))
}

func TestCodec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		codec   Codec
		wantErr bool
	}{
		{"default", DefaultCodec(), false},
		{"empty escape", Codec{ValueSeparator: ";", LanguageSeparator: "__", ColorSeparator: "|"}, true},
		{"collision", Codec{ValueSeparator: ";", LanguageSeparator: ";", ColorSeparator: "|", Escape: "`"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.codec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
