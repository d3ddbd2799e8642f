package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// PreviewSummary contains the summary counts for an import preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	Products        int `json:"products"`
	NewProducts     int `json:"newProducts"`
	UpdateProducts  int `json:"updateProducts"`
	ErrorRows       int `json:"errorRows"`
	DuplicateInFile int `json:"duplicateInFile"`
	UnknownStores   int `json:"unknownStores"`
}

// ProductPreview is one product as it would be imported.
type ProductPreview struct {
	LineNumber int    `json:"lineNumber"`
	ID         string `json:"id,omitempty"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	Prices     int    `json:"prices"`
	Properties int    `json:"properties"`
}

// UpdateDiff represents a before/after diff for a product that will be updated.
type UpdateDiff struct {
	LineNumber int               `json:"lineNumber"`
	Code       string            `json:"code"`
	Current    map[string]string `json:"current"`
	Incoming   map[string]string `json:"incoming"`
	Changed    []string          `json:"changed"`
}

// ErrorPreview represents a row that failed to decode.
type ErrorPreview struct {
	LineNumber int    `json:"lineNumber"`
	Message    string `json:"message"`
}

// DuplicatePreview lists the lines that fold into one product.
type DuplicatePreview struct {
	Code        string `json:"code"`
	LineNumbers []int  `json:"lineNumbers"`
}

// PreviewResponse is the result of a read-only import analysis.
type PreviewResponse struct {
	Summary          PreviewSummary     `json:"summary"`
	NewSamples       []ProductPreview   `json:"newSamples"`
	UpdateDiffs      []UpdateDiff       `json:"updateDiffs"`
	ErrorSamples     []ErrorPreview     `json:"errorSamples"`
	DuplicateSamples []DuplicatePreview `json:"duplicateSamples"`
	Problems         []string           `json:"problems"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// Sample limits
const (
	maxNewSamples       = 10
	maxUpdateDiffs      = 10
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// Preview decodes r and reports what an import of it would do without
// writing anything: how many products are new or updates, which rows fail to
// decode, which lines fold into one product, and which SEO stores are
// unknown.
func (imp *Importer) Preview(ctx context.Context, r io.Reader, req ImportRequest) (*PreviewResponse, error) {
	startTime := time.Now()
	ctx, rn := imp.newRun(ctx, req, nil)

	products, rowErrs, err := imp.decode(r, req, rn.opts, rn.delimiter)
	if err != nil {
		return nil, err
	}

	cat, err := rn.stores.Catalogs.GetCatalog(ctx, req.CatalogID)
	if errors.Is(err, catalog.ErrNotFound) || (err == nil && cat == nil) {
		return nil, fmt.Errorf("%w: Catalog with id '%s' does not exist.", ErrCatalogNotFound, req.CatalogID)
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	rn.catalog = cat

	resp := &PreviewResponse{
		Summary: PreviewSummary{
			TotalRows: len(products) + len(rowErrs),
			ErrorRows: len(rowErrs),
		},
		NewSamples:       []ProductPreview{},
		UpdateDiffs:      []UpdateDiff{},
		ErrorSamples:     []ErrorPreview{},
		DuplicateSamples: []DuplicatePreview{},
		Problems:         []string{},
	}

	for _, re := range rowErrs {
		if len(resp.ErrorSamples) >= maxErrorSamples {
			break
		}
		resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{LineNumber: re.LineNumber, Message: re.Message})
	}

	problems, err := rn.validateSeoStores(ctx, products)
	if err != nil {
		return nil, err
	}
	resp.Summary.UnknownStores = len(problems)
	resp.Problems = append(resp.Problems, problems...)

	// Lines sharing a code are merged into the first one
	linesByCode := make(map[string][]int)
	var codeOrder []string
	for _, p := range products {
		if p.Code == "" {
			continue
		}
		if _, ok := linesByCode[p.Code]; !ok {
			codeOrder = append(codeOrder, p.Code)
		}
		linesByCode[p.Code] = append(linesByCode[p.Code], p.LineNumber)
	}
	for _, code := range codeOrder {
		lines := linesByCode[code]
		if len(lines) < 2 {
			continue
		}
		resp.Summary.DuplicateInFile += len(lines) - 1
		if len(resp.DuplicateSamples) < maxDuplicateSamples {
			resp.DuplicateSamples = append(resp.DuplicateSamples, DuplicatePreview{Code: code, LineNumbers: lines})
		}
	}

	lang := cat.DefaultLanguage
	if lang == "" {
		lang = rn.opts.DefaultLanguage
	}
	products = MergeRows(products, lang)
	resp.Summary.Products = len(products)

	existing, err := rn.findExisting(ctx, products)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		ex := matchExisting(existing, p)
		if ex == nil {
			resp.Summary.NewProducts++
			if len(resp.NewSamples) < maxNewSamples {
				resp.NewSamples = append(resp.NewSamples, previewProduct(p))
			}
			continue
		}

		resp.Summary.UpdateProducts++
		if len(resp.UpdateDiffs) < maxUpdateDiffs {
			resp.UpdateDiffs = append(resp.UpdateDiffs, diffProduct(p, ex))
		}
	}

	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	rn.logger.Info("import previewed",
		"products", resp.Summary.Products,
		"new", resp.Summary.NewProducts,
		"updates", resp.Summary.UpdateProducts,
	)
	return resp, nil
}

func previewProduct(p *CsvProduct) ProductPreview {
	return ProductPreview{
		LineNumber: p.LineNumber,
		ID:         p.ID,
		Code:       p.Code,
		Name:       p.Name,
		Category:   firstNonEmpty(p.CategoryPath, p.CategoryID),
		Prices:     len(p.Prices),
		Properties: len(p.Properties),
	}
}

// diffProduct compares the scalar fields a row sets with the stored product.
// Blank row values keep the stored value on import and are left out.
func diffProduct(p *CsvProduct, ex *catalog.Product) UpdateDiff {
	incoming := previewValues(&p.Product)
	current := previewValues(ex)

	var changed []string
	for _, col := range previewColumns {
		in, ok := incoming[col]
		if !ok {
			continue
		}
		if in != current[col] {
			changed = append(changed, col)
		}
	}

	code := p.Code
	if code == "" {
		code = ex.Code
	}
	return UpdateDiff{
		LineNumber: p.LineNumber,
		Code:       code,
		Current:    current,
		Incoming:   incoming,
		Changed:    changed,
	}
}

var previewColumns = []string{"name", "categoryId", "mainProductId", "gtin", "vendor", "productType", "isActive", "isBuyable"}

func previewValues(p *catalog.Product) map[string]string {
	values := make(map[string]string)
	set := func(col, v string) {
		if v != "" {
			values[col] = v
		}
	}
	set("name", p.Name)
	set("categoryId", p.CategoryID)
	set("mainProductId", p.MainProductID)
	set("gtin", p.Gtin)
	set("vendor", p.Vendor)
	set("productType", p.ProductType)
	set("isActive", formatBool(p.IsActive))
	set("isBuyable", formatBool(p.IsBuyable))
	return values
}

func formatBool(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "Yes"
	}
	return "No"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
