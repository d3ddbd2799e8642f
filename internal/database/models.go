package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Row types mirror the tables in schema.sql. JSONB columns are kept as raw
// bytes and decoded by Repository.

type Catalog struct {
	ID              string
	Name            string
	DefaultLanguage pgtype.Text
	Languages       []byte
	Properties      []byte
}

type Category struct {
	ID         string
	CatalogID  string
	ParentID   pgtype.Text
	Code       string
	Name       string
	Path       pgtype.Text
	Properties []byte
}

type Product struct {
	ID                     string
	CatalogID              string
	CategoryID             pgtype.Text
	MainProductID          pgtype.Text
	Code                   string
	Name                   string
	OuterID                pgtype.Text
	IsActive               pgtype.Bool
	IsBuyable              pgtype.Bool
	TrackInventory         pgtype.Bool
	Priority               pgtype.Int4
	MinQuantity            pgtype.Int4
	MaxQuantity            pgtype.Int4
	ManufacturerPartNumber pgtype.Text
	Gtin                   pgtype.Text
	MeasureUnit            pgtype.Text
	WeightUnit             pgtype.Text
	Weight                 pgtype.Numeric
	Height                 pgtype.Numeric
	Length                 pgtype.Numeric
	Width                  pgtype.Numeric
	PackageType            pgtype.Text
	TaxType                pgtype.Text
	ProductType            pgtype.Text
	ShippingType           pgtype.Text
	Vendor                 pgtype.Text
	DownloadType           pgtype.Text
	DownloadExpiration     pgtype.Timestamptz
	HasUserAgreement       pgtype.Bool
	MaxNumberOfDownload    pgtype.Int4
	StartDate              pgtype.Timestamptz
	EndDate                pgtype.Timestamptz
	Images                 []byte
	Reviews                []byte
	SeoInfos               []byte
	Properties             []byte
	Extra                  []byte
}

type Price struct {
	ID          string
	PricelistID pgtype.Text
	ProductID   string
	Currency    string
	List        pgtype.Numeric
	Sale        pgtype.Numeric
	MinQuantity int32
}

type Inventory struct {
	ProductID                 string
	FulfillmentCenterID       string
	InStockQuantity           int64
	ReservedQuantity          int64
	AllowBackorder            bool
	AllowPreorder             bool
	BackorderAvailabilityDate pgtype.Timestamptz
	BackorderQuantity         int64
	PreorderQuantity          int64
	InTransit                 int64
}

type Store struct {
	ID        string
	Name      string
	CatalogID pgtype.Text
}

type FulfillmentCenter struct {
	ID   string
	Name string
}

type DictionaryItem struct {
	ID         string
	PropertyID string
	Alias      string
	ColorCode  pgtype.Text
}

type MappingTemplate struct {
	ID         string
	Name       string
	Etag       string
	CsvColumns []byte
	Mapping    []byte
	CreatedAt  pgtype.Timestamptz
	UpdatedAt  pgtype.Timestamptz
}
