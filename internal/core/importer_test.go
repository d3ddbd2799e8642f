package core_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/core"
	"github.com/JonMunkholm/catalogcsv/internal/memstore"
)

const testCatalogID = "c1"

// newTestStore returns a store with catalog c1 defining a dictionary
// multivalue Color property and a plain Material property.
func newTestStore() *memstore.Store {
	s := memstore.New()
	s.AddCatalog(catalog.Catalog{
		ID:              testCatalogID,
		Name:            "Main",
		DefaultLanguage: "en-US",
		Properties: []catalog.Property{
			{ID: "prop-color", Name: "Color", ValueType: catalog.ValueShortText, Dictionary: true, Multivalue: true},
			{ID: "prop-material", Name: "Material", ValueType: catalog.ValueShortText},
		},
	})
	s.AddDictionaryItem(catalog.DictionaryItem{ID: "dict-red", PropertyID: "prop-color", Alias: "Red", ColorCode: "#ff0000"})
	return s
}

type progressLog struct {
	updates []core.ProgressInfo
}

func (l *progressLog) sink(info core.ProgressInfo) {
	l.updates = append(l.updates, info)
}

func (l *progressLog) last() core.ProgressInfo {
	if len(l.updates) == 0 {
		return core.ProgressInfo{}
	}
	return l.updates[len(l.updates)-1]
}

func (l *progressLog) phases() []core.ImportPhase {
	var out []core.ImportPhase
	for _, u := range l.updates {
		if len(out) == 0 || out[len(out)-1] != u.Phase {
			out = append(out, u.Phase)
		}
	}
	return out
}

func runImport(t *testing.T, s *memstore.Store, csv string, opts *core.Options) (*progressLog, error) {
	t.Helper()
	imp := core.NewImporter(s.Stores(), core.DefaultOptions(), nil)
	log := &progressLog{}
	err := imp.Import(context.Background(), strings.NewReader(csv), core.ImportRequest{
		CatalogID: testCatalogID,
		FileName:  "products.csv",
		Options:   opts,
	}, log.sink)
	return log, err
}

const multiRowCSV = `Sku;Name;CategoryPath;ListPrice;Currency;SeoUrl;Review;ReviewType;Color;Material
TST1;Test product;A/B/C;10.5;usd;url1;Great;QuickReview;Red;Cotton
TST1;;;12;EUR;url2;;;Blue;
`

func TestImport_MergesRowsAndResolvesEverything(t *testing.T) {
	s := newTestStore()

	log, err := runImport(t, s, multiRowCSV, nil)
	require.NoError(t, err)

	final := log.last()
	assert.Equal(t, core.PhaseDone, final.Phase)
	assert.Equal(t, 1, final.TotalCount)
	assert.Equal(t, 1, final.ProcessedCount)
	assert.Equal(t, "Import completed: 1 of 1 products processed", final.Description)
	assert.Contains(t, final.Errors, "The 'Blue' dictionary item is not found in 'Color' dictionary")

	assert.Equal(t, []core.ImportPhase{
		core.PhaseReading,
		core.PhaseValidating,
		core.PhaseMerging,
		core.PhaseResolvingExisting,
		core.PhaseResolvingCategories,
		core.PhaseResolvingDependencies,
		core.PhaseSavingParents,
		core.PhaseSavingVariations,
		core.PhaseDone,
	}, log.phases())

	products := s.Products()
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, "TST1", p.Code)
	assert.Equal(t, "Test product", p.Name)
	assert.Equal(t, testCatalogID, p.CatalogID)

	// Category path creates the whole chain
	categories := s.Categories()
	require.Len(t, categories, 3)
	byName := make(map[string]catalog.Category)
	for _, c := range categories {
		byName[c.Name] = c
	}
	assert.Empty(t, byName["A"].ParentID)
	assert.Equal(t, byName["A"].ID, byName["B"].ParentID)
	assert.Equal(t, byName["B"].ID, byName["C"].ParentID)
	assert.Equal(t, "A/B/C", byName["C"].Path)
	assert.Equal(t, "c", byName["C"].Code)
	assert.Equal(t, byName["C"].ID, p.CategoryID)

	// SEO and reviews from both rows
	require.Len(t, p.SeoInfos, 2)
	assert.Equal(t, "url1", p.SeoInfos[0].SemanticURL)
	assert.Equal(t, "url2", p.SeoInfos[1].SemanticURL)
	assert.Equal(t, "en-US", p.SeoInfos[0].LanguageCode)
	require.Len(t, p.Reviews, 1)
	assert.Equal(t, "Great", p.Reviews[0].Content)

	// Properties take the catalog definitions
	props := make(map[string]catalog.Property)
	for _, prop := range p.Properties {
		props[prop.Name] = prop
	}
	color := props["Color"]
	assert.Equal(t, "prop-color", color.ID)
	require.Len(t, color.Values, 2)
	assert.Equal(t, "Red", color.Values[0].Value)
	assert.Equal(t, "dict-red", color.Values[0].ValueID)
	assert.Equal(t, "#ff0000", color.Values[0].ColorCode)
	assert.Empty(t, color.Values[1].ValueID)
	material := props["Material"]
	require.Len(t, material.Values, 1)
	assert.Equal(t, "Cotton", material.Values[0].Value)
	assert.Equal(t, "prop-material", material.Values[0].PropertyID)

	// Prices from both rows, bound to the product
	prices := s.Prices()
	require.Len(t, prices, 2)
	byCurrency := make(map[string]catalog.Price)
	for _, pr := range prices {
		assert.Equal(t, p.ID, pr.ProductID)
		assert.Equal(t, 1, pr.MinQuantity)
		byCurrency[pr.Currency] = pr
	}
	assert.True(t, byCurrency["USD"].List.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, byCurrency["EUR"].List.Equal(decimal.NewFromInt(12)))
}

func TestImport_SecondRunReusesEverything(t *testing.T) {
	s := newTestStore()

	_, err := runImport(t, s, multiRowCSV, nil)
	require.NoError(t, err)
	first := s.Products()[0]

	log, err := runImport(t, s, multiRowCSV, nil)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseDone, log.last().Phase)

	assert.Len(t, s.Categories(), 3, "existing categories are found by name")
	require.Len(t, s.Products(), 1, "product is matched by code")
	assert.Equal(t, first.ID, s.Products()[0].ID)
	assert.Len(t, s.Prices(), 2, "prices are matched by currency")
}

func TestImport_CategoryPrefixesAreResolvedOnce(t *testing.T) {
	s := newTestStore()

	csv := "Sku;Name;CategoryPath\nP1;One;A/B/C\nP2;Two;A/B/C\nP3;Three;A>B|D\n"
	_, err := runImport(t, s, csv, nil)
	require.NoError(t, err)

	categories := s.Categories()
	require.Len(t, categories, 4)
	byName := make(map[string]catalog.Category)
	for _, c := range categories {
		byName[c.Name] = c
	}
	assert.Equal(t, byName["B"].ID, byName["C"].ParentID)
	assert.Equal(t, byName["B"].ID, byName["D"].ParentID)
	assert.Equal(t, "A/B/D", byName["D"].Path)

	// One lookup and one save per distinct prefix: A, A/B, A/B/C, A/B/D
	assert.Equal(t, 4, s.CallCount("SaveCategories"))
	assert.Equal(t, 4, s.CallCount("SearchCategories"))

	for code, name := range map[string]string{"P1": "C", "P2": "C", "P3": "D"} {
		p, ok := s.ProductByCode(code)
		require.True(t, ok, code)
		assert.Equal(t, byName[name].ID, p.CategoryID, code)
	}
}

func TestImport_SingleValuePropertyJoinsRowsWithValueSeparator(t *testing.T) {
	s := newTestStore()

	_, err := runImport(t, s, "Sku;Name;Material\nP1;One;Cotton\nP1;;Linen\n", nil)
	require.NoError(t, err)

	p, ok := s.ProductByCode("P1")
	require.True(t, ok)
	var material catalog.Property
	for _, prop := range p.Properties {
		if prop.Name == "Material" {
			material = prop
		}
	}
	require.Len(t, material.Values, 1)
	assert.Equal(t, "Cotton;Linen", material.Values[0].Value)
	assert.Equal(t, "prop-material", material.Values[0].PropertyID)
}

func TestImport_CreatesDictionaryItemsWhenEnabled(t *testing.T) {
	s := newTestStore()
	opts := core.DefaultOptions()
	opts.CreateDictionaryValues = true

	log, err := runImport(t, s, multiRowCSV, &opts)
	require.NoError(t, err)
	assert.NotContains(t, log.last().Errors, "The 'Blue' dictionary item is not found in 'Color' dictionary")

	items := s.DictionaryItems()
	require.Len(t, items, 2)
	assert.Equal(t, "Blue", items[1].Alias)
	assert.Equal(t, "prop-color", items[1].PropertyID)

	p, ok := s.ProductByCode("TST1")
	require.True(t, ok)
	for _, prop := range p.Properties {
		if prop.Name == "Color" {
			assert.Equal(t, items[1].ID, prop.Values[1].ValueID)
		}
	}
}

func TestImport_MissingCatalogAborts(t *testing.T) {
	s := memstore.New()

	log, err := runImport(t, s, "Sku;Name\nA;Alpha\n", nil)
	require.ErrorIs(t, err, core.ErrCatalogNotFound)

	final := log.last()
	assert.Equal(t, core.PhaseAborted, final.Phase)
	require.NotEmpty(t, final.Errors)
	assert.Contains(t, final.Errors[len(final.Errors)-1], "Catalog with id 'c1' does not exist.")
	assert.Empty(t, s.Products())
	assert.Zero(t, s.CallCount("SaveProducts"))
}

func TestImport_UnknownSeoStoreAborts(t *testing.T) {
	s := newTestStore()
	s.AddStore(catalog.Store{ID: "B2B-Store", Name: "B2B"})

	csv := "Sku;Name;SeoUrl;SeoStore\nA;Alpha;alpha;b2b-store\nB;Beta;beta;nostore\n"
	log, err := runImport(t, s, csv, nil)
	require.ErrorIs(t, err, core.ErrValidationFailed)

	final := log.last()
	assert.Equal(t, core.PhaseAborted, final.Phase)
	assert.Contains(t, final.Errors, "Cannot find store with Id 'nostore'. Line number: 3")
	assert.Empty(t, s.Products())
}

func TestImport_SkipsBadRowsAndReportsThem(t *testing.T) {
	s := newTestStore()

	csv := "Sku;Name;ListPrice\nA;Alpha;abc\nB;Beta;5\n"
	log, err := runImport(t, s, csv, nil)
	require.NoError(t, err)

	final := log.last()
	assert.Equal(t, 1, final.TotalCount)
	require.NotEmpty(t, final.Errors)
	assert.True(t, strings.HasPrefix(final.Errors[0], "Line 2: Column: ListPrice"), final.Errors[0])

	require.Len(t, s.Products(), 1)
	assert.Equal(t, "B", s.Products()[0].Code)
}

func TestImport_LinksVariationsToMainProduct(t *testing.T) {
	s := newTestStore()

	csv := "Sku;Name;MainProductId\nVAR1;Variation;main\nMAIN;Main product;\n"
	log, err := runImport(t, s, csv, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, log.last().ProcessedCount)

	products := s.Products()
	require.Len(t, products, 2)
	assert.Equal(t, "MAIN", products[0].Code, "main products are saved first")
	assert.Equal(t, "VAR1", products[1].Code)
	assert.Equal(t, products[0].ID, products[1].MainProductID)
}

func TestImport_UnresolvedMainProductIsCleared(t *testing.T) {
	s := newTestStore()

	_, err := runImport(t, s, "Sku;Name;MainProductId\nVAR1;Variation;ghost\n", nil)
	require.NoError(t, err)

	p, ok := s.ProductByCode("VAR1")
	require.True(t, ok)
	assert.Empty(t, p.MainProductID)
}

func TestImport_MergesExistingProduct(t *testing.T) {
	s := newTestStore()
	stored := s.AddProduct(catalog.Product{
		Code:      "EX1",
		Name:      "Stored name",
		Gtin:      "4006381333931",
		CatalogID: testCatalogID,
		Images:    []catalog.Image{{ID: "img-1", URL: "https://cdn/ex1.png"}},
	})

	_, err := runImport(t, s, "Sku;Vendor\nex1;ACME\n", nil)
	require.NoError(t, err)

	products := s.Products()
	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, stored.ID, p.ID)
	assert.Equal(t, "ACME", p.Vendor)
	assert.Equal(t, "Stored name", p.Name)
	assert.Equal(t, "4006381333931", p.Gtin)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "img-1", p.Images[0].ID)
}

func TestImport_PriceMatchingPrecedence(t *testing.T) {
	s := newTestStore()
	product := s.AddProduct(catalog.Product{Code: "SKU", Name: "Priced", CatalogID: testCatalogID})
	s.AddPrice(catalog.Price{ID: "pr-list", ProductID: product.ID, PricelistID: "PL1", Currency: "USD", List: decimal.NewFromInt(5), MinQuantity: 1})
	s.AddPrice(catalog.Price{ID: "pr-eur", ProductID: product.ID, Currency: "EUR", List: decimal.NewFromInt(7), MinQuantity: 1})
	s.AddPrice(catalog.Price{ID: "pr-id", ProductID: product.ID, Currency: "GBP", List: decimal.NewFromInt(3), MinQuantity: 1})

	csv := "Id;Sku;PriceId;ListPrice;Currency;PriceListId\n" +
		product.ID + ";SKU;;9;USD;PL1\n" +
		product.ID + ";SKU;;8;EUR;\n" +
		product.ID + ";SKU;pr-id;4;GBP;\n"
	log, err := runImport(t, s, csv, nil)
	require.NoError(t, err)
	assert.Equal(t, core.PhaseDone, log.last().Phase)

	prices := s.Prices()
	require.Len(t, prices, 3, "every row price matched a stored one")
	byID := make(map[string]catalog.Price)
	for _, p := range prices {
		byID[p.ID] = p
	}
	assert.True(t, byID["pr-list"].List.Equal(decimal.NewFromInt(9)))
	assert.True(t, byID["pr-eur"].List.Equal(decimal.NewFromInt(8)))
	assert.True(t, byID["pr-id"].List.Equal(decimal.NewFromInt(4)))
}

func TestImport_PriceWithoutCurrencyGetsDefault(t *testing.T) {
	s := newTestStore()
	opts := core.DefaultOptions()
	opts.DefaultCurrency = "eur"

	_, err := runImport(t, s, "Sku;Name;ListPrice\nA;Alpha;3\n", &opts)
	require.NoError(t, err)

	prices := s.Prices()
	require.Len(t, prices, 1)
	assert.Equal(t, "EUR", prices[0].Currency)
}

func TestImport_InventoryUsesDefaultFulfillmentCenter(t *testing.T) {
	s := newTestStore()
	s.AddFulfillmentCenter(catalog.FulfillmentCenter{ID: "fc-main", Name: "Main warehouse"})
	stored := s.AddProduct(catalog.Product{Code: "INV", Name: "Stocked", CatalogID: testCatalogID})
	s.AddInventory(catalog.Inventory{ProductID: stored.ID, FulfillmentCenterID: "fc-main", InStockQuantity: 1, AllowBackorder: true, InTransit: 4})

	_, err := runImport(t, s, "Sku;Name;Quantity\nINV;Stocked;25\nNEW;Fresh;3\n", nil)
	require.NoError(t, err)

	inventories := s.Inventories()
	require.Len(t, inventories, 2)
	for _, inv := range inventories {
		assert.Equal(t, "fc-main", inv.FulfillmentCenterID)
		if inv.ProductID == stored.ID {
			assert.EqualValues(t, 25, inv.InStockQuantity)
			assert.True(t, inv.AllowBackorder, "stored settings survive")
			assert.EqualValues(t, 4, inv.InTransit)
		} else {
			assert.EqualValues(t, 3, inv.InStockQuantity)
		}
	}
}

func TestImport_InventoryDroppedWithoutFulfillmentCenter(t *testing.T) {
	s := newTestStore()

	_, err := runImport(t, s, "Sku;Name;Quantity\nA;Alpha;5\n", nil)
	require.NoError(t, err)
	assert.Empty(t, s.Inventories())
	assert.Len(t, s.Products(), 1)
}

func TestImport_RejectedBatchDoesNotStopTheRun(t *testing.T) {
	s := newTestStore()
	s.CheckProduct = func(p catalog.Product) []catalog.FieldError {
		if p.Code == "BAD" {
			return []catalog.FieldError{{Field: "code", Message: "code BAD is reserved"}}
		}
		return nil
	}
	opts := core.DefaultOptions()
	opts.SaveBatchSize = 1

	log, err := runImport(t, s, "Sku;Name;ListPrice\nGOOD1;One;1\nBAD;Bad;1\nGOOD2;Two;1\n", &opts)
	require.NoError(t, err)

	final := log.last()
	assert.Equal(t, core.PhaseDone, final.Phase)
	assert.Equal(t, 3, final.ProcessedCount)
	assert.Contains(t, final.Errors, "code BAD is reserved")
	assert.Len(t, s.Products(), 2)
	assert.Len(t, s.Prices(), 2, "prices of the rejected product are skipped")
	assert.Equal(t, 3, s.CallCount("SaveProducts"))
}

func TestImport_ValidationErrorsCarryTheLine(t *testing.T) {
	s := newTestStore()

	log, err := runImport(t, s, "Sku;Name\nOK;Fine\nNONAME;\n", nil)
	require.NoError(t, err)

	assert.Contains(t, log.last().Errors, "Line 3: name is required")
	assert.Len(t, s.Products(), 1)
}

func TestImport_GeneratesMissingSku(t *testing.T) {
	s := newTestStore()

	_, err := runImport(t, s, "Name\nNo code\n", nil)
	require.NoError(t, err)

	products := s.Products()
	require.Len(t, products, 1)
	assert.Len(t, products[0].Code, 12)
}

func TestImport_UnknownCategoryIDFails(t *testing.T) {
	s := newTestStore()

	log, err := runImport(t, s, "Sku;Name;CategoryId\nA;Alpha;missing-cat\n", nil)
	require.ErrorIs(t, err, core.ErrCategoryNotFound)
	assert.Equal(t, core.PhaseFailed, log.last().Phase)
	assert.Empty(t, s.Products())
}

func TestDoImport_StopsWhenCancelled(t *testing.T) {
	s := newTestStore()
	imp := core.NewImporter(s.Stores(), core.DefaultOptions(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := &progressLog{}
	products := []*core.CsvProduct{{Product: catalog.Product{Code: "A", Name: "Alpha"}, LineNumber: 2}}
	err := imp.DoImport(ctx, products, core.ImportRequest{CatalogID: testCatalogID}, log.sink)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.PhaseFailed, log.last().Phase)
	assert.Empty(t, s.Products())
}

func TestPreview_ReportsWithoutWriting(t *testing.T) {
	s := newTestStore()
	s.AddProduct(catalog.Product{Code: "OLD", Name: "Old name", CatalogID: testCatalogID})
	imp := core.NewImporter(s.Stores(), core.DefaultOptions(), nil)

	csv := "Sku;Name;ListPrice\nOLD;New name;1\nNEW;Fresh;2\nNEW;;3\nBAD;Broken;x\n"
	resp, err := imp.Preview(context.Background(), strings.NewReader(csv), core.ImportRequest{
		CatalogID: testCatalogID,
		FileName:  "products.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Summary.TotalRows)
	assert.Equal(t, 2, resp.Summary.Products)
	assert.Equal(t, 1, resp.Summary.NewProducts)
	assert.Equal(t, 1, resp.Summary.UpdateProducts)
	assert.Equal(t, 1, resp.Summary.ErrorRows)
	assert.Equal(t, 1, resp.Summary.DuplicateInFile)

	require.Len(t, resp.UpdateDiffs, 1)
	assert.Equal(t, []string{"name"}, resp.UpdateDiffs[0].Changed)
	require.Len(t, resp.DuplicateSamples, 1)
	assert.Equal(t, []int{3, 4}, resp.DuplicateSamples[0].LineNumbers)

	assert.Zero(t, s.CallCount("SaveProducts"))
	assert.Zero(t, s.CallCount("SaveCategories"))
}
