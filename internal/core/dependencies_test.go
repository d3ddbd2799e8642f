package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

func literals(values []catalog.PropertyValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Value)
	}
	return out
}

func TestSplitValue(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		delimiter string
		want      []string
	}{
		{"comma", "Red, Green ,Blue", ";", []string{"Red", "Green", "Blue"}},
		{"delimiter", "Red;Green", ";", []string{"Red", "Green"}},
		{"mixed", "Red;Green,Blue", ";", []string{"Red", "Green", "Blue"}},
		{"duplicates and blanks", "Red,,Red, ", ";", []string{"Red"}},
		{"comma delimiter", "a,b", ",", []string{"a", "b"}},
		{"no delimiter", "a|b,c", "", []string{"a|b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := catalog.PropertyValue{Value: tt.value, LanguageCode: "en-US", ColorCode: "#fff"}
			got := splitValue(v, tt.delimiter)

			assert.Equal(t, tt.want, literals(got))
			for _, g := range got {
				assert.Equal(t, "en-US", g.LanguageCode)
				assert.Equal(t, "#fff", g.ColorCode)
			}
		})
	}
}

func TestInheritProperties(t *testing.T) {
	cat := &catalog.Catalog{
		ID: "c1",
		Properties: []catalog.Property{
			{ID: "p-tags", Name: "Tags", ValueType: catalog.ValueShortText, Multivalue: true},
			{ID: "p-desc", Name: "Description", ValueType: catalog.ValueLongText},
		},
	}
	p := &CsvProduct{Catalog: cat}
	p.Properties = []catalog.Property{
		{Name: "tags", Values: []catalog.PropertyValue{{Value: "a,b"}, {Value: "c"}}},
		{Name: "Description", Values: []catalog.PropertyValue{{Value: "one"}, {Value: ""}, {Value: "two"}}},
		{Name: "Unknown", Values: []catalog.PropertyValue{{Value: "x,y"}}},
	}

	inheritProperties(p, ";", DefaultCodec())

	tags := p.Properties[0]
	assert.Equal(t, "p-tags", tags.ID)
	assert.True(t, tags.Multivalue)
	assert.Equal(t, []string{"a", "b", "c"}, literals(tags.Values))
	for _, v := range tags.Values {
		assert.Equal(t, "p-tags", v.PropertyID)
		assert.Equal(t, catalog.ValueShortText, v.ValueType)
	}

	desc := p.Properties[1]
	require.Len(t, desc.Values, 1)
	assert.Equal(t, "one;;two", desc.Values[0].Value, "collapsed with the value separator")
	assert.Equal(t, catalog.ValueLongText, desc.ValueType)

	unknown := p.Properties[2]
	assert.Empty(t, unknown.ID)
	assert.Equal(t, []string{"x,y"}, literals(unknown.Values), "undefined properties are left untouched")
}

func TestInheritedDefinitions_CategoryWins(t *testing.T) {
	p := &CsvProduct{
		Catalog:  &catalog.Catalog{Properties: []catalog.Property{{Name: "FromCatalog"}}},
		Category: &catalog.Category{Properties: []catalog.Property{{Name: "Zeta"}, {Name: "Alpha"}}},
	}
	defs := inheritedDefinitions(p)
	require.Len(t, defs, 2)
	assert.Equal(t, "Alpha", defs[0].Name)
	assert.Equal(t, "Zeta", defs[1].Name)

	p.Category = &catalog.Category{}
	defs = inheritedDefinitions(p)
	require.Len(t, defs, 1)
	assert.Equal(t, "FromCatalog", defs[0].Name)
}

func TestFindMainProduct(t *testing.T) {
	byID := &CsvProduct{}
	byID.ID = "P-1"
	byCode := &CsvProduct{}
	byCode.Code = "MAIN"

	variation := &CsvProduct{}
	variation.MainProductID = "main"
	products := []*CsvProduct{byID, byCode, variation}

	assert.Same(t, byCode, findMainProduct(products, variation))

	variation.MainProductID = "p-1"
	assert.Same(t, byID, findMainProduct(products, variation))

	variation.MainProductID = "nothing"
	assert.Nil(t, findMainProduct(products, variation))
}

func TestFindMainProduct_SkipsSelf(t *testing.T) {
	self := &CsvProduct{}
	self.Code = "LOOP"
	self.MainProductID = "LOOP"

	assert.Nil(t, findMainProduct([]*CsvProduct{self}, self))
}

func TestCsvProduct_IsVariation(t *testing.T) {
	main := &CsvProduct{}
	main.Code = "MAIN"

	byRef := &CsvProduct{}
	byRef.MainProductID = "MAIN"
	linked := &CsvProduct{MainProduct: main}

	assert.False(t, main.IsVariation())
	assert.True(t, byRef.IsVariation())
	assert.True(t, linked.IsVariation())
}

func TestSplitCategoryPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"A/B/C", []string{"A", "B", "C"}},
		{" Shoes > Boots | Winter \\ Kids ", []string{"Shoes", "Boots", "Winter", "Kids"}},
		{"//A//", []string{"A"}},
		{"A/ /B", []string{"A", "B"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCategoryPath(tt.path))
		})
	}
}

func TestCategoryCode(t *testing.T) {
	assert.Equal(t, Slug("Winter Boots"), categoryCode("Winter Boots"))

	code := categoryCode("!!!")
	assert.Len(t, code, 32)
	assert.NotContains(t, code, "-")
}
