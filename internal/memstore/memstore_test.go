package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/core"
)

func TestSearchCategories(t *testing.T) {
	ctx := context.Background()
	s := New()
	root := s.AddCategory(catalog.Category{CatalogID: "c1", Name: "Shoes"})
	s.AddCategory(catalog.Category{CatalogID: "c1", Name: "Boots", ParentID: root.ID})
	s.AddCategory(catalog.Category{CatalogID: "c2", Name: "Shoes"})

	tests := []struct {
		name     string
		criteria catalog.CategorySearchCriteria
		want     []string
	}{
		{
			name:     "root by keyword ignores case",
			criteria: catalog.CategorySearchCriteria{CatalogID: "c1", Keyword: "shoes", OnlyRoot: true},
			want:     []string{"Shoes"},
		},
		{
			name:     "child under parent",
			criteria: catalog.CategorySearchCriteria{CatalogID: "c1", ParentID: root.ID, Keyword: "BOOTS"},
			want:     []string{"Boots"},
		},
		{
			name:     "child is not a root",
			criteria: catalog.CategorySearchCriteria{CatalogID: "c1", Keyword: "Boots", OnlyRoot: true},
			want:     nil,
		},
		{
			name:     "keyword matches whole name only",
			criteria: catalog.CategorySearchCriteria{CatalogID: "c1", Keyword: "Sho", OnlyRoot: true},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := s.SearchCategories(ctx, tt.criteria)
			require.NoError(t, err)

			var names []string
			for _, c := range found {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSearchPrices_Paging(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		s.AddPrice(catalog.Price{ProductID: "P1", Currency: "USD", List: decimal.NewFromInt(int64(i)), MinQuantity: 1})
	}
	s.AddPrice(catalog.Price{ProductID: "P2", PricelistID: "PL", Currency: "EUR", MinQuantity: 1})

	first, err := s.SearchPrices(ctx, catalog.PriceSearchCriteria{ProductIDs: []string{"p1"}, Take: 3})
	require.NoError(t, err)
	assert.Len(t, first, 3)

	rest, err := s.SearchPrices(ctx, catalog.PriceSearchCriteria{ProductIDs: []string{"P1"}, Skip: 3, Take: 3})
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	byList, err := s.SearchPrices(ctx, catalog.PriceSearchCriteria{ProductIDs: []string{"P2"}, PricelistIDs: []string{"pl"}})
	require.NoError(t, err)
	require.Len(t, byList, 1)
	assert.Equal(t, "EUR", byList[0].Currency)
}

func TestSaveProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns ids and copies", func(t *testing.T) {
		s := New()
		p := &catalog.Product{Code: "A", Name: "Alpha", CatalogID: "c1", Images: []catalog.Image{{URL: "a.png"}}}
		require.NoError(t, s.SaveProducts(ctx, []*catalog.Product{p}))
		require.NotEmpty(t, p.ID)

		p.Images[0].URL = "changed.png"

		got, err := s.GetProducts(ctx, []string{p.ID, "missing"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a.png", got[0].Images[0].URL)
	})

	t.Run("check rejects the whole call", func(t *testing.T) {
		s := New()
		s.CheckProduct = func(p catalog.Product) []catalog.FieldError {
			if p.Code == "BAD" {
				return []catalog.FieldError{{Field: "code", Message: "code is reserved"}}
			}
			return nil
		}

		err := s.SaveProducts(ctx, []*catalog.Product{{Code: "OK"}, {Code: "BAD"}})
		var ve *catalog.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "code is reserved", ve.Errors[0].Message)
		assert.Empty(t, s.Products())
	})
}

func TestSearchProductIDsByCode(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := s.AddProduct(catalog.Product{Code: "SKU-1", CatalogID: "c1"})
	s.AddProduct(catalog.Product{Code: "SKU-1", CatalogID: "c2"})

	found, err := s.SearchProductIDsByCode(ctx, "c1", []string{"sku-1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)
	assert.Equal(t, 1, s.CallCount("SearchProductIDsByCode"))
}

func TestGetCatalog_NotFound(t *testing.T) {
	_, err := New().GetCatalog(context.Background(), "nope")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	s := New()
	mapping := &core.MappingConfiguration{Delimiter: ";"}

	created, err := s.CreateTemplate(ctx, core.MappingTemplate{Name: "Supplier A", Mapping: mapping})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.CreateTemplate(ctx, core.MappingTemplate{Name: "supplier a", Mapping: mapping})
	assert.ErrorIs(t, err, core.ErrTemplateExists)

	other, err := s.CreateTemplate(ctx, core.MappingTemplate{Name: "Supplier B", Mapping: mapping})
	require.NoError(t, err)

	other.Name = "SUPPLIER A"
	_, err = s.UpdateTemplate(ctx, other)
	assert.ErrorIs(t, err, core.ErrTemplateExists)

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteTemplate(ctx, created.ID))
	_, err = s.GetTemplate(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrTemplateNotFound)
	assert.ErrorIs(t, s.DeleteTemplate(ctx, created.ID), core.ErrTemplateNotFound)
}
