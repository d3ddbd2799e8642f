package core

import (
	"net/url"
	"path"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// SeoObjectType is the object type stamped on product SEO entries.
const SeoObjectType = "CatalogProduct"

// DefaultImageGroup is used for images imported without a group column.
const DefaultImageGroup = "images"

// CsvProduct is the transient product decoded from one or more import rows.
//
// The flat columns (images, SEO, review, price, inventory) are folded into
// the embedded product's collections and into Prices/Inventory by finalize.
type CsvProduct struct {
	catalog.Product

	CategoryPath string

	PrimaryImage      string
	PrimaryImageGroup string
	AltImage          string
	AltImageGroup     string

	SeoURL                  string
	SeoTitle                string
	SeoDescription          string
	SeoLanguage             string
	SeoStore                string
	SeoMetaKeywords         string
	SeoImageAlternativeText string

	Review     string
	ReviewType string

	PriceID          string
	ListPrice        *decimal.Decimal
	SalePrice        *decimal.Decimal
	PriceMinQuantity *int
	Currency         string
	PriceListID      string

	Quantity            *int
	FulfillmentCenterID string

	Prices    []catalog.Price
	Inventory *catalog.Inventory

	// Resolved references, set by the orchestrator.
	Catalog     *catalog.Catalog
	Category    *catalog.Category
	MainProduct *CsvProduct

	LineNumber int
}

// IsVariation reports whether the row refers to a main product.
func (p *CsvProduct) IsVariation() bool {
	return p.MainProductID != "" || p.MainProduct != nil
}

// finalize builds the collections from the flat columns.
func (p *CsvProduct) finalize() {
	if p.PrimaryImage != "" {
		p.Images = append(p.Images, newImage(p.PrimaryImage, p.PrimaryImageGroup, 0))
	}
	if p.AltImage != "" {
		p.Images = append(p.Images, newImage(p.AltImage, p.AltImageGroup, 1))
	}

	if p.hasSeo() {
		p.SeoInfos = append(p.SeoInfos, catalog.SeoInfo{
			SemanticURL:         p.SeoURL,
			PageTitle:           p.SeoTitle,
			MetaDescription:     p.SeoDescription,
			MetaKeywords:        p.SeoMetaKeywords,
			ImageAltDescription: p.SeoImageAlternativeText,
			LanguageCode:        p.SeoLanguage,
			StoreID:             p.SeoStore,
			ObjectType:          SeoObjectType,
			IsActive:            true,
		})
	}

	// Reviews need both a body and a type.
	if p.Review != "" && p.ReviewType != "" {
		p.Reviews = append(p.Reviews, catalog.Review{Content: p.Review, ReviewType: p.ReviewType})
	}

	if p.ListPrice != nil || p.SalePrice != nil {
		price := catalog.Price{
			ID:          p.PriceID,
			PricelistID: p.PriceListID,
			Currency:    strings.ToUpper(p.Currency),
			Sale:        p.SalePrice,
		}
		if p.ListPrice != nil {
			price.List = *p.ListPrice
		}
		if p.PriceMinQuantity != nil {
			price.MinQuantity = *p.PriceMinQuantity
		}
		p.Prices = append(p.Prices, price)
	}

	if p.Quantity != nil || p.FulfillmentCenterID != "" {
		inv := &catalog.Inventory{FulfillmentCenterID: p.FulfillmentCenterID}
		if p.Quantity != nil {
			inv.InStockQuantity = int64(*p.Quantity)
		}
		p.Inventory = inv
	}
}

func (p *CsvProduct) hasSeo() bool {
	return p.SeoURL != "" || p.SeoTitle != "" || p.SeoDescription != "" ||
		p.SeoMetaKeywords != "" || p.SeoImageAlternativeText != "" || p.SeoStore != ""
}

func newImage(rawURL, group string, sortOrder int) catalog.Image {
	if group == "" {
		group = DefaultImageGroup
	}
	return catalog.Image{
		URL:       rawURL,
		Name:      fileNameFromURL(rawURL),
		Group:     group,
		SortOrder: sortOrder,
	}
}

// fileNameFromURL returns the last path element of an absolute or relative URL.
func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return path.Base(rawURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
