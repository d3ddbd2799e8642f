// Package catalog defines the catalog entities the import pipeline reads and
// writes: catalogs, categories, products with their properties, SEO entries,
// reviews and images, prices, inventory records, dictionary items, stores and
// fulfillment centers.
//
// Optional scalars are pointers so that "not supplied" can be told apart from
// a zero value. Absent identifiers are empty strings.
package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Catalog is a product catalog with its catalog-level property definitions.
type Catalog struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	DefaultLanguage string     `json:"defaultLanguage,omitempty"`
	Languages       []string   `json:"languages,omitempty"`
	Properties      []Property `json:"properties,omitempty"`
}

// Category is a node of a catalog's category tree.
type Category struct {
	ID         string     `json:"id"`
	CatalogID  string     `json:"catalogId"`
	ParentID   string     `json:"parentId,omitempty"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Path       string     `json:"path,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

// PropertyValueType is the declared type of a property's values.
type PropertyValueType string

const (
	ValueShortText PropertyValueType = "ShortText"
	ValueLongText  PropertyValueType = "LongText"
	ValueNumber    PropertyValueType = "Number"
	ValueDateTime  PropertyValueType = "DateTime"
	ValueBoolean   PropertyValueType = "Boolean"
	ValueInteger   PropertyValueType = "Integer"
	ValueGeoPoint  PropertyValueType = "GeoPoint"
	ValueColor     PropertyValueType = "Color"
)

// Property is either a definition (on a catalog or category) or a product's
// own property instance carrying values.
type Property struct {
	ID            string            `json:"id,omitempty"`
	CatalogID     string            `json:"catalogId,omitempty"`
	CategoryID    string            `json:"categoryId,omitempty"`
	Name          string            `json:"name"`
	ValueType     PropertyValueType `json:"valueType,omitempty"`
	Dictionary    bool              `json:"dictionary,omitempty"`
	Multivalue    bool              `json:"multivalue,omitempty"`
	Multilanguage bool              `json:"multilanguage,omitempty"`
	Values        []PropertyValue   `json:"values,omitempty"`
}

// HasValues reports whether at least one value carries a literal.
func (p Property) HasValues() bool {
	for _, v := range p.Values {
		if v.Value != "" {
			return true
		}
	}
	return false
}

// PropertyValue is one value of a named property.
type PropertyValue struct {
	PropertyID   string            `json:"propertyId,omitempty"`
	PropertyName string            `json:"propertyName"`
	Value        string            `json:"value"`
	LanguageCode string            `json:"languageCode,omitempty"`
	ColorCode    string            `json:"colorCode,omitempty"`
	Alias        string            `json:"alias,omitempty"`
	ValueID      string            `json:"valueId,omitempty"`
	ValueType    PropertyValueType `json:"valueType,omitempty"`
}

// Review is an editorial review of a product.
type Review struct {
	ID           string `json:"id,omitempty"`
	Content      string `json:"content"`
	ReviewType   string `json:"reviewType"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// SeoInfo is a search-engine entry (semantic URL and metadata) of a product.
type SeoInfo struct {
	ID                  string `json:"id,omitempty"`
	SemanticURL         string `json:"semanticUrl"`
	PageTitle           string `json:"pageTitle,omitempty"`
	MetaDescription     string `json:"metaDescription,omitempty"`
	MetaKeywords        string `json:"metaKeywords,omitempty"`
	ImageAltDescription string `json:"imageAltDescription,omitempty"`
	LanguageCode        string `json:"languageCode,omitempty"`
	StoreID             string `json:"storeId,omitempty"`
	ObjectID            string `json:"objectId,omitempty"`
	ObjectType          string `json:"objectType,omitempty"`
	IsActive            bool   `json:"isActive"`
}

// Image is a product image.
type Image struct {
	ID           string `json:"id,omitempty"`
	URL          string `json:"url"`
	Name         string `json:"name,omitempty"`
	Group        string `json:"group,omitempty"`
	AltText      string `json:"altText,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	SortOrder    int    `json:"sortOrder"`
}

// Product is a catalog product or a variation of one (MainProductID set).
type Product struct {
	ID            string `json:"id,omitempty"`
	Code          string `json:"code" validate:"required,max=64"`
	Name          string `json:"name" validate:"required,max=1024"`
	CatalogID     string `json:"catalogId" validate:"required"`
	CategoryID    string `json:"categoryId,omitempty"`
	MainProductID string `json:"mainProductId,omitempty"`
	OuterID       string `json:"outerId,omitempty"`

	IsActive       *bool `json:"isActive,omitempty"`
	IsBuyable      *bool `json:"isBuyable,omitempty"`
	TrackInventory *bool `json:"trackInventory,omitempty"`

	Priority    *int `json:"priority,omitempty"`
	MinQuantity *int `json:"minQuantity,omitempty"`
	MaxQuantity *int `json:"maxQuantity,omitempty"`

	ManufacturerPartNumber string `json:"manufacturerPartNumber,omitempty"`
	Gtin                   string `json:"gtin,omitempty" validate:"omitempty,max=64"`
	MeasureUnit            string `json:"measureUnit,omitempty"`
	WeightUnit             string `json:"weightUnit,omitempty"`

	Weight *decimal.Decimal `json:"weight,omitempty"`
	Height *decimal.Decimal `json:"height,omitempty"`
	Length *decimal.Decimal `json:"length,omitempty"`
	Width  *decimal.Decimal `json:"width,omitempty"`

	PackageType  string `json:"packageType,omitempty"`
	TaxType      string `json:"taxType,omitempty"`
	ProductType  string `json:"productType,omitempty"`
	ShippingType string `json:"shippingType,omitempty"`
	Vendor       string `json:"vendor,omitempty"`

	DownloadType        string     `json:"downloadType,omitempty"`
	DownloadExpiration  *time.Time `json:"downloadExpiration,omitempty"`
	HasUserAgreement    *bool      `json:"hasUserAgreement,omitempty"`
	MaxNumberOfDownload *int       `json:"maxNumberOfDownload,omitempty"`

	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	Images     []Image    `json:"images,omitempty"`
	Reviews    []Review   `json:"reviews,omitempty"`
	SeoInfos   []SeoInfo  `json:"seoInfos,omitempty"`
	Properties []Property `json:"properties,omitempty"`

	// Extra holds host-defined extension fields.
	Extra map[string]string `json:"extra,omitempty"`
}

// Price is one price of a product in a price list.
type Price struct {
	ID          string           `json:"id,omitempty"`
	PricelistID string           `json:"pricelistId,omitempty"`
	ProductID   string           `json:"productId" validate:"required"`
	Currency    string           `json:"currency" validate:"required,iso4217"`
	List        decimal.Decimal  `json:"list"`
	Sale        *decimal.Decimal `json:"sale,omitempty"`
	MinQuantity int              `json:"minQuantity" validate:"gte=1"`
}

// EffectiveValue is the sale amount when a positive one is set, otherwise
// the list amount.
func (p Price) EffectiveValue() decimal.Decimal {
	if p.Sale != nil && p.Sale.IsPositive() {
		return *p.Sale
	}
	return p.List
}

// Inventory is the stock record of a product in one fulfillment center.
type Inventory struct {
	ProductID                 string     `json:"productId" validate:"required"`
	FulfillmentCenterID       string     `json:"fulfillmentCenterId" validate:"required"`
	InStockQuantity           int64      `json:"inStockQuantity" validate:"gte=0"`
	ReservedQuantity          int64      `json:"reservedQuantity"`
	AllowBackorder            bool       `json:"allowBackorder"`
	AllowPreorder             bool       `json:"allowPreorder"`
	BackorderAvailabilityDate *time.Time `json:"backorderAvailabilityDate,omitempty"`
	BackorderQuantity         int64      `json:"backorderQuantity"`
	PreorderQuantity          int64      `json:"preorderQuantity"`
	InTransit                 int64      `json:"inTransit"`
}

// DictionaryItem is one entry of a dictionary property's vocabulary.
type DictionaryItem struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	Alias      string `json:"alias"`
	ColorCode  string `json:"colorCode,omitempty"`
}

// Store is a storefront. SEO entries may be scoped to one.
type Store struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CatalogID string `json:"catalogId,omitempty"`
}

// FulfillmentCenter is a stock location.
type FulfillmentCenter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports entities rejected before or during persistence.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Clone returns a copy of the value.
func (v PropertyValue) Clone() PropertyValue {
	return v
}
