package core

// merge.go holds both merge steps of a run:
//
//   - MergeRows folds rows sharing a product code into one carrier.
//   - mergeProduct and friends fold a previously stored entity into the
//     transient one so that absent import fields do not erase stored data.
//
// Existing-entity precedence, per entity kind:
//
//	Product    existing:       ID, CatalogID
//	           existing-first: CategoryID (a row category path still wins later)
//	           fill-if-blank:  every other scalar, extension fields
//	           collections:    matched entries adopt the stored id, unmatched
//	                           stored entries are appended after the row's
//	SeoInfo    existing:       ID, ObjectID, ObjectType, SemanticURL
//	           fill-if-blank:  LanguageCode, StoreID, PageTitle,
//	                           MetaDescription, MetaKeywords, ImageAltDescription
//	Price      existing:       ID, PricelistID
//	           fill-if-blank:  Currency, Sale
//	           row:            List, MinQuantity
//	Inventory  row:            InStockQuantity
//	           existing:       everything else
//	Review     existing:       ID
//	           fill-if-blank:  Content, LanguageCode

import (
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// DefaultLanguage is used when neither the catalog nor the run names one.
const DefaultLanguage = "en-US"

// MergeRows groups rows by product code and folds each group into its first
// row. Code-less rows pass through individually. Carriers come first, in
// order of first appearance, followed by the code-less rows.
func MergeRows(products []*CsvProduct, defaultLanguage string) []*CsvProduct {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}

	var (
		carriers []*CsvProduct
		noCode   []*CsvProduct
		byCode   = make(map[string]*CsvProduct)
	)

	for _, p := range products {
		if p.Code == "" {
			noCode = append(noCode, p)
			continue
		}
		carrier, ok := byCode[p.Code]
		if !ok {
			byCode[p.Code] = p
			carriers = append(carriers, p)
			continue
		}
		carrier.Reviews = append(carrier.Reviews, p.Reviews...)
		carrier.SeoInfos = append(carrier.SeoInfos, p.SeoInfos...)
		carrier.Properties = append(carrier.Properties, p.Properties...)
		carrier.Prices = append(carrier.Prices, p.Prices...)
	}

	for _, c := range carriers {
		c.Reviews = collapseReviews(c.Reviews, defaultLanguage)
		c.SeoInfos = collapseSeo(c.SeoInfos, defaultLanguage)
		c.Properties = collapseProperties(c.Properties)
		c.Prices = collapsePrices(c.Prices)
	}

	for _, p := range noCode {
		backfillLanguage(p, defaultLanguage)
	}

	return append(carriers, noCode...)
}

// collapseReviews keeps the first review with content per review type.
func collapseReviews(reviews []catalog.Review, lang string) []catalog.Review {
	out := make([]catalog.Review, 0, len(reviews))
	seen := make(map[string]struct{}, len(reviews))
	for _, r := range reviews {
		if r.Content == "" {
			continue
		}
		if _, dup := seen[r.ReviewType]; dup {
			continue
		}
		seen[r.ReviewType] = struct{}{}
		if r.LanguageCode == "" {
			r.LanguageCode = lang
		}
		out = append(out, r)
	}
	return out
}

// collapseSeo keeps the first entry per semantic URL. Entries without a URL
// are dropped.
func collapseSeo(infos []catalog.SeoInfo, lang string) []catalog.SeoInfo {
	out := make([]catalog.SeoInfo, 0, len(infos))
	seen := make(map[string]struct{}, len(infos))
	for _, s := range infos {
		if s.SemanticURL == "" {
			continue
		}
		if _, dup := seen[s.SemanticURL]; dup {
			continue
		}
		seen[s.SemanticURL] = struct{}{}
		if s.LanguageCode == "" {
			s.LanguageCode = lang
		}
		out = append(out, s)
	}
	return out
}

// collapseProperties drops properties without any literal and unions the
// values of same-named properties by literal, first occurrence first.
func collapseProperties(props []catalog.Property) []catalog.Property {
	out := make([]catalog.Property, 0, len(props))
	index := make(map[string]int, len(props))
	for _, p := range props {
		if !p.HasValues() {
			continue
		}
		i, ok := index[p.Name]
		if !ok {
			p.Values = append([]catalog.PropertyValue(nil), p.Values...)
			index[p.Name] = len(out)
			out = append(out, p)
			continue
		}
		for _, v := range p.Values {
			if !hasValue(out[i].Values, v.Value) {
				out[i].Values = append(out[i].Values, v)
			}
		}
	}
	return out
}

func hasValue(values []catalog.PropertyValue, literal string) bool {
	for _, v := range values {
		if v.Value == literal {
			return true
		}
	}
	return false
}

type priceKey struct {
	currency    string
	pricelistID string
	minQuantity int
}

// collapsePrices drops non-positive prices and keeps the first price per
// (currency, price list, minimum quantity).
func collapsePrices(prices []catalog.Price) []catalog.Price {
	out := make([]catalog.Price, 0, len(prices))
	seen := make(map[priceKey]struct{}, len(prices))
	for _, p := range prices {
		if !p.EffectiveValue().IsPositive() {
			continue
		}
		k := priceKey{p.Currency, p.PricelistID, p.MinQuantity}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func backfillLanguage(p *CsvProduct, lang string) {
	for i := range p.Reviews {
		if p.Reviews[i].LanguageCode == "" {
			p.Reviews[i].LanguageCode = lang
		}
	}
	for i := range p.SeoInfos {
		if p.SeoInfos[i].LanguageCode == "" {
			p.SeoInfos[i].LanguageCode = lang
		}
	}
}

// mergeProduct folds a stored product into the row in place.
func mergeProduct(row *CsvProduct, existing *catalog.Product) {
	row.ID = existing.ID
	row.CatalogID = existing.CatalogID
	if existing.CategoryID != "" {
		row.CategoryID = existing.CategoryID
	}

	fill(&row.Code, existing.Code)
	fill(&row.Name, existing.Name)
	fill(&row.MainProductID, existing.MainProductID)
	fill(&row.OuterID, existing.OuterID)

	fillPtr(&row.IsActive, existing.IsActive)
	fillPtr(&row.IsBuyable, existing.IsBuyable)
	fillPtr(&row.TrackInventory, existing.TrackInventory)
	fillPtr(&row.Priority, existing.Priority)
	fillPtr(&row.MinQuantity, existing.MinQuantity)
	fillPtr(&row.MaxQuantity, existing.MaxQuantity)

	fill(&row.ManufacturerPartNumber, existing.ManufacturerPartNumber)
	fill(&row.Gtin, existing.Gtin)
	fill(&row.MeasureUnit, existing.MeasureUnit)
	fill(&row.WeightUnit, existing.WeightUnit)
	fillPtr(&row.Weight, existing.Weight)
	fillPtr(&row.Height, existing.Height)
	fillPtr(&row.Length, existing.Length)
	fillPtr(&row.Width, existing.Width)

	fill(&row.PackageType, existing.PackageType)
	fill(&row.TaxType, existing.TaxType)
	fill(&row.ProductType, existing.ProductType)
	fill(&row.ShippingType, existing.ShippingType)
	fill(&row.Vendor, existing.Vendor)

	fill(&row.DownloadType, existing.DownloadType)
	fillPtr(&row.DownloadExpiration, existing.DownloadExpiration)
	fillPtr(&row.HasUserAgreement, existing.HasUserAgreement)
	fillPtr(&row.MaxNumberOfDownload, existing.MaxNumberOfDownload)
	fillPtr(&row.StartDate, existing.StartDate)
	fillPtr(&row.EndDate, existing.EndDate)

	for k, v := range existing.Extra {
		if row.Extra == nil {
			row.Extra = make(map[string]string, len(existing.Extra))
		}
		if row.Extra[k] == "" {
			row.Extra[k] = v
		}
	}

	row.Images = mergeImages(row.Images, existing.Images)
	row.SeoInfos = mergeSeoInfos(row.SeoInfos, existing.SeoInfos)
	row.Reviews = mergeReviews(row.Reviews, existing.Reviews)
	row.Properties = mergeProperties(row.Properties, existing.Properties)
}

func mergeImages(rows, existing []catalog.Image) []catalog.Image {
	used := make([]bool, len(existing))
	out := make([]catalog.Image, 0, len(rows)+len(existing))
	for _, img := range rows {
		for i, ex := range existing {
			if !used[i] && strings.EqualFold(img.URL, ex.URL) {
				used[i] = true
				img.ID = ex.ID
				fill(&img.Name, ex.Name)
				fill(&img.Group, ex.Group)
				fill(&img.AltText, ex.AltText)
				fill(&img.LanguageCode, ex.LanguageCode)
				break
			}
		}
		out = append(out, img)
	}
	for i, ex := range existing {
		if !used[i] {
			out = append(out, ex)
		}
	}
	return out
}

func mergeSeoInfos(rows, existing []catalog.SeoInfo) []catalog.SeoInfo {
	used := make([]bool, len(existing))
	out := make([]catalog.SeoInfo, 0, len(rows)+len(existing))
	for _, s := range rows {
		for i, ex := range existing {
			if !used[i] && strings.EqualFold(s.SemanticURL, ex.SemanticURL) {
				used[i] = true
				s = mergeSeo(s, ex)
				break
			}
		}
		out = append(out, s)
	}
	for i, ex := range existing {
		if !used[i] {
			out = append(out, ex)
		}
	}
	return out
}

// mergeSeo returns the row entry with the stored identity and gaps filled.
func mergeSeo(row, existing catalog.SeoInfo) catalog.SeoInfo {
	row.ID = existing.ID
	row.ObjectID = existing.ObjectID
	row.ObjectType = existing.ObjectType
	row.SemanticURL = existing.SemanticURL

	fill(&row.LanguageCode, existing.LanguageCode)
	fill(&row.StoreID, existing.StoreID)
	fill(&row.PageTitle, existing.PageTitle)
	fill(&row.MetaDescription, existing.MetaDescription)
	fill(&row.MetaKeywords, existing.MetaKeywords)
	fill(&row.ImageAltDescription, existing.ImageAltDescription)
	return row
}

func mergeReviews(rows, existing []catalog.Review) []catalog.Review {
	used := make([]bool, len(existing))
	out := make([]catalog.Review, 0, len(rows)+len(existing))
	for _, r := range rows {
		for i, ex := range existing {
			if !used[i] && strings.EqualFold(r.ReviewType, ex.ReviewType) {
				used[i] = true
				r = mergeReview(r, ex)
				break
			}
		}
		out = append(out, r)
	}
	for i, ex := range existing {
		if !used[i] {
			out = append(out, ex)
		}
	}
	return out
}

func mergeReview(row, existing catalog.Review) catalog.Review {
	row.ID = existing.ID
	fill(&row.Content, existing.Content)
	fill(&row.LanguageCode, existing.LanguageCode)
	return row
}

// mergeProperties lets a row property replace the same-named stored one and
// keeps stored properties the row did not supply.
func mergeProperties(rows, existing []catalog.Property) []catalog.Property {
	out := make([]catalog.Property, 0, len(rows)+len(existing))
	out = append(out, rows...)
	for _, ex := range existing {
		supplied := false
		for _, r := range rows {
			if strings.EqualFold(r.Name, ex.Name) {
				supplied = true
				break
			}
		}
		if !supplied {
			out = append(out, ex)
		}
	}
	return out
}

// mergePrice returns the row price with the stored identity and gaps filled.
func mergePrice(row, existing catalog.Price) catalog.Price {
	row.ID = existing.ID
	row.PricelistID = existing.PricelistID
	fill(&row.Currency, existing.Currency)
	fillPtr(&row.Sale, existing.Sale)
	return row
}

// mergeInventory keeps the row's stock level and everything else stored.
func mergeInventory(row, existing catalog.Inventory) catalog.Inventory {
	out := existing
	out.InStockQuantity = row.InStockQuantity
	return out
}

func fill(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

func fillPtr[T any](dst **T, src *T) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
