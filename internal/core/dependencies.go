package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// ErrCategoryNotFound is returned when a row references a category id that
// does not exist. It aborts the run.
var ErrCategoryNotFound = errors.New("category not found")

// resolveDependencies attaches catalog and category context, links
// variations to their main product, generates missing codes and reshapes
// properties after their inherited definitions.
func (r *run) resolveDependencies(ctx context.Context, products []*CsvProduct) error {
	categories, err := r.fetchCategories(ctx, products)
	if err != nil {
		return err
	}

	skus := r.stores.Skus
	if skus == nil {
		skus = RandomSkuGenerator{}
	}

	for _, p := range products {
		p.Catalog = r.catalog
		p.CatalogID = r.catalog.ID

		if p.CategoryID != "" {
			p.Category = categories[p.CategoryID]
		}

		if p.MainProductID != "" {
			main := findMainProduct(products, p)
			p.MainProduct = main
			p.MainProductID = ""
			if main != nil {
				p.MainProductID = main.ID
			}
		}

		if p.Code == "" {
			code, err := skus.GenerateSku(ctx, &p.Product)
			if err != nil {
				return fmt.Errorf("generate sku for line %d: %w", p.LineNumber, err)
			}
			p.Code = code
		}

		inheritProperties(p, r.delimiter, r.opts.Codec)
	}

	return nil
}

// fetchCategories loads every referenced category id in search-batch pages.
func (r *run) fetchCategories(ctx context.Context, products []*CsvProduct) (map[string]*catalog.Category, error) {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.CategoryID)
	}
	ids = distinct(ids)

	byID := make(map[string]*catalog.Category, len(ids))
	for _, page := range chunk(ids, r.opts.SearchBatchSize) {
		found, err := r.stores.Categories.GetCategories(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		for i := range found {
			byID[found[i].ID] = &found[i]
		}
	}

	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
	}
	return byID, nil
}

// findMainProduct resolves a variation's main product reference against the
// batch, by id or by code, case-insensitively.
func findMainProduct(products []*CsvProduct, variation *CsvProduct) *CsvProduct {
	ref := variation.MainProductID
	for _, c := range products {
		if c == variation {
			continue
		}
		if (c.ID != "" && strings.EqualFold(c.ID, ref)) || (c.Code != "" && strings.EqualFold(c.Code, ref)) {
			return c
		}
	}
	return nil
}

// inheritedDefinitions returns the category's property definitions when it
// has any, else the catalog's, ordered by name.
func inheritedDefinitions(p *CsvProduct) []catalog.Property {
	var defs []catalog.Property
	switch {
	case p.Category != nil && len(p.Category.Properties) > 0:
		defs = append(defs, p.Category.Properties...)
	case p.Catalog != nil:
		defs = append(defs, p.Catalog.Properties...)
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// inheritProperties copies definition metadata onto same-named product
// properties. Multivalue and multilanguage values are split on "," and the
// column delimiter; several values of a single-value property are collapsed
// into the first one, joined with the codec's value separator. Properties
// without a definition are left untouched.
func inheritProperties(p *CsvProduct, delimiter string, codec Codec) {
	defs := inheritedDefinitions(p)
	if len(defs) == 0 {
		return
	}

	for i := range p.Properties {
		prop := &p.Properties[i]
		def, ok := findDefinition(defs, prop.Name)
		if !ok {
			continue
		}

		prop.ID = def.ID
		prop.ValueType = def.ValueType
		prop.Dictionary = def.Dictionary
		prop.Multivalue = def.Multivalue
		prop.Multilanguage = def.Multilanguage
		for j := range prop.Values {
			prop.Values[j].ValueType = def.ValueType
			prop.Values[j].PropertyID = def.ID
		}

		switch {
		case def.Multivalue || def.Multilanguage:
			var split []catalog.PropertyValue
			for _, v := range prop.Values {
				split = append(split, splitValue(v, delimiter)...)
			}
			prop.Values = split
		case len(prop.Values) > 1:
			first := prop.Values[0]
			first.Value = joinLiterals(prop.Values, codec.ValueSeparator)
			prop.Values = []catalog.PropertyValue{first}
		}
	}
}

func findDefinition(defs []catalog.Property, name string) (catalog.Property, bool) {
	for _, d := range defs {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return catalog.Property{}, false
}

// splitValue splits one literal on "," and the delimiter. Pieces are trimmed,
// blanks dropped and duplicates removed; each piece keeps the language and
// color of the source value.
func splitValue(v catalog.PropertyValue, delimiter string) []catalog.PropertyValue {
	literal := v.Value
	if delimiter != "" && delimiter != "," {
		literal = strings.ReplaceAll(literal, delimiter, ",")
	}

	pieces := strings.Split(literal, ",")
	for i := range pieces {
		pieces[i] = strings.TrimSpace(pieces[i])
	}

	var out []catalog.PropertyValue
	for _, piece := range distinct(pieces) {
		clone := v.Clone()
		clone.Value = piece
		out = append(out, clone)
	}
	return out
}

// joinLiterals joins every literal with sep. Empty literals keep their slot.
func joinLiterals(values []catalog.PropertyValue, sep string) string {
	literals := make([]string, 0, len(values))
	for _, v := range values {
		literals = append(literals, v.Value)
	}
	return strings.Join(literals, sep)
}
