package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// mergeFromExisting folds previously stored products into the rows that
// refer to them. Rows with an id match by id; rows with only a code match by
// code within the target catalog.
func (r *run) mergeFromExisting(ctx context.Context, products []*CsvProduct) error {
	existing, err := r.findExisting(ctx, products)
	if err != nil {
		return err
	}

	merged := 0
	for _, p := range products {
		if ex := matchExisting(existing, p); ex != nil {
			mergeProduct(p, ex)
			merged++
		}
	}

	r.logger.Info("merged existing products", "matched", merged, "rows", len(products))
	return nil
}

// findExisting loads the stored products the rows refer to.
func (r *run) findExisting(ctx context.Context, products []*CsvProduct) ([]catalog.Product, error) {
	var ids, codes []string
	for _, p := range products {
		switch {
		case p.ID != "":
			ids = append(ids, p.ID)
		case p.Code != "":
			codes = append(codes, p.Code)
		}
	}

	existing, err := r.loadProducts(ctx, distinct(ids))
	if err != nil {
		return nil, err
	}

	for _, page := range chunk(distinctFold(codes), r.opts.LoadBatchSize) {
		matches, err := r.stores.Products.SearchProductIDsByCode(ctx, r.catalog.ID, page)
		if err != nil {
			return nil, fmt.Errorf("search products by code: %w", err)
		}
		found := make([]string, 0, len(matches))
		for _, m := range matches {
			found = append(found, m.ID)
		}
		byCode, err := r.loadProducts(ctx, found)
		if err != nil {
			return nil, err
		}
		existing = append(existing, byCode...)
	}
	return existing, nil
}

// loadProducts fetches products in load-batch pages.
func (r *run) loadProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, page := range chunk(ids, r.opts.LoadBatchSize) {
		found, err := r.stores.Products.GetProducts(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("load existing products: %w", err)
		}
		out = append(out, found...)
	}
	return out, nil
}

func matchExisting(existing []catalog.Product, p *CsvProduct) *catalog.Product {
	for i := range existing {
		if p.ID != "" {
			if existing[i].ID == p.ID {
				return &existing[i]
			}
			continue
		}
		if p.Code != "" && strings.EqualFold(existing[i].Code, p.Code) {
			return &existing[i]
		}
	}
	return nil
}
