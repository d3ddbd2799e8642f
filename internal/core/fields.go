package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// productFields lists the built-in scalar product fields in mapping order.
func productFields() []FieldSpec {
	return []FieldSpec{
		textField("Name", func(p *CsvProduct) *string { return &p.Name }),
		textField("Id", func(p *CsvProduct) *string { return &p.ID }),
		textField("Sku", func(p *CsvProduct) *string { return &p.Code }),
		textField("CategoryPath", func(p *CsvProduct) *string { return &p.CategoryPath }),
		textField("CategoryId", func(p *CsvProduct) *string { return &p.CategoryID }),
		textField("MainProductId", func(p *CsvProduct) *string { return &p.MainProductID }),
		textField("PrimaryImage", func(p *CsvProduct) *string { return &p.PrimaryImage }),
		textField("PrimaryImageGroup", func(p *CsvProduct) *string { return &p.PrimaryImageGroup }),
		textField("AltImage", func(p *CsvProduct) *string { return &p.AltImage }),
		textField("AltImageGroup", func(p *CsvProduct) *string { return &p.AltImageGroup }),
		textField("SeoUrl", func(p *CsvProduct) *string { return &p.SeoURL }),
		textField("SeoTitle", func(p *CsvProduct) *string { return &p.SeoTitle }),
		textField("SeoDescription", func(p *CsvProduct) *string { return &p.SeoDescription }),
		textField("SeoLanguage", func(p *CsvProduct) *string { return &p.SeoLanguage }),
		textField("SeoStore", func(p *CsvProduct) *string { return &p.SeoStore }),
		textField("SeoMetaKeywords", func(p *CsvProduct) *string { return &p.SeoMetaKeywords }),
		textField("SeoImageAlternativeText", func(p *CsvProduct) *string { return &p.SeoImageAlternativeText }),
		textField("Review", func(p *CsvProduct) *string { return &p.Review }),
		textField("ReviewType", func(p *CsvProduct) *string { return &p.ReviewType }),
		boolField("IsActive", func(p *CsvProduct) **bool { return &p.IsActive }),
		boolField("IsBuyable", func(p *CsvProduct) **bool { return &p.IsBuyable }),
		boolField("TrackInventory", func(p *CsvProduct) **bool { return &p.TrackInventory }),
		textField("PriceId", func(p *CsvProduct) *string { return &p.PriceID }),
		decimalField("SalePrice", func(p *CsvProduct) **decimal.Decimal { return &p.SalePrice }),
		decimalField("ListPrice", func(p *CsvProduct) **decimal.Decimal { return &p.ListPrice }),
		intField("PriceMinQuantity", func(p *CsvProduct) **int { return &p.PriceMinQuantity }),
		textField("Currency", func(p *CsvProduct) *string { return &p.Currency }),
		textField("PriceListId", func(p *CsvProduct) *string { return &p.PriceListID }),
		intField("Quantity", func(p *CsvProduct) **int { return &p.Quantity }),
		textField("FulfillmentCenterId", func(p *CsvProduct) *string { return &p.FulfillmentCenterID }),
		textField("PackageType", func(p *CsvProduct) *string { return &p.PackageType }),
		textField("OuterId", func(p *CsvProduct) *string { return &p.OuterID }),
		intField("Priority", func(p *CsvProduct) **int { return &p.Priority }),
		intField("MaxQuantity", func(p *CsvProduct) **int { return &p.MaxQuantity }),
		intField("MinQuantity", func(p *CsvProduct) **int { return &p.MinQuantity }),
		textField("ManufacturerPartNumber", func(p *CsvProduct) *string { return &p.ManufacturerPartNumber }),
		textField("Gtin", func(p *CsvProduct) *string { return &p.Gtin }),
		textField("MeasureUnit", func(p *CsvProduct) *string { return &p.MeasureUnit }),
		textField("WeightUnit", func(p *CsvProduct) *string { return &p.WeightUnit }),
		decimalField("Weight", func(p *CsvProduct) **decimal.Decimal { return &p.Weight }),
		decimalField("Height", func(p *CsvProduct) **decimal.Decimal { return &p.Height }),
		decimalField("Length", func(p *CsvProduct) **decimal.Decimal { return &p.Length }),
		decimalField("Width", func(p *CsvProduct) **decimal.Decimal { return &p.Width }),
		textField("TaxType", func(p *CsvProduct) *string { return &p.TaxType }),
		textField("ProductType", func(p *CsvProduct) *string { return &p.ProductType }),
		textField("ShippingType", func(p *CsvProduct) *string { return &p.ShippingType }),
		textField("Vendor", func(p *CsvProduct) *string { return &p.Vendor }),
		textField("DownloadType", func(p *CsvProduct) *string { return &p.DownloadType }),
		dateField("DownloadExpiration", func(p *CsvProduct) **time.Time { return &p.DownloadExpiration }),
		boolField("HasUserAgreement", func(p *CsvProduct) **bool { return &p.HasUserAgreement }),
		intField("MaxNumberOfDownload", func(p *CsvProduct) **int { return &p.MaxNumberOfDownload }),
		dateField("StartDate", func(p *CsvProduct) **time.Time { return &p.StartDate }),
		dateField("EndDate", func(p *CsvProduct) **time.Time { return &p.EndDate }),
	}
}

func textField(name string, ref func(*CsvProduct) *string) FieldSpec {
	return FieldSpec{Name: name, Type: FieldText, Set: func(p *CsvProduct, v string) error {
		*ref(p) = v
		return nil
	}}
}

func boolField(name string, ref func(*CsvProduct) **bool) FieldSpec {
	return FieldSpec{Name: name, Type: FieldBool, Set: func(p *CsvProduct, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*ref(p) = &b
		return nil
	}}
}

func intField(name string, ref func(*CsvProduct) **int) FieldSpec {
	return FieldSpec{Name: name, Type: FieldInt, Set: func(p *CsvProduct, v string) error {
		n, err := parseInt(v)
		if err != nil {
			return err
		}
		*ref(p) = &n
		return nil
	}}
}

func decimalField(name string, ref func(*CsvProduct) **decimal.Decimal) FieldSpec {
	return FieldSpec{Name: name, Type: FieldDecimal, Set: func(p *CsvProduct, v string) error {
		d, err := parseDecimal(v)
		if err != nil {
			return err
		}
		*ref(p) = &d
		return nil
	}}
}

func dateField(name string, ref func(*CsvProduct) **time.Time) FieldSpec {
	return FieldSpec{Name: name, Type: FieldDate, Set: func(p *CsvProduct, v string) error {
		t, err := parseDate(v)
		if err != nil {
			return err
		}
		*ref(p) = &t
		return nil
	}}
}
