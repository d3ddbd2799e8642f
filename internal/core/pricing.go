package core

// pricing.go resolves the prices and inventory records of a saved batch
// against what is already stored.
//
// Price matching, first hit wins:
//
//	1. price id                      GetPrices
//	2. (price list, product)         SearchPrices per price list
//	3. (currency, product)           SearchPrices over all of the product's prices
//
// A row price without a currency takes the product's first stored price in
// step 3 and falls back to the default currency when nothing is stored.

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// defaultFulfillmentCenter returns the first fulfillment center, or nil.
func (r *run) defaultFulfillmentCenter(ctx context.Context) (*catalog.FulfillmentCenter, error) {
	found, err := r.stores.FulfillmentCenters.SearchFulfillmentCenters(ctx, catalog.FulfillmentCenterSearchCriteria{Take: 1})
	if err != nil {
		return nil, fmt.Errorf("search fulfillment centers: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// resolveInventories binds each product's inventory to the product and a
// fulfillment center and merges the stored record for that pair. Products
// with no center to bind to lose their inventory.
func (r *run) resolveInventories(ctx context.Context, products []*CsvProduct, center *catalog.FulfillmentCenter) ([]catalog.Inventory, error) {
	var productIDs []string
	for _, p := range products {
		if p.Inventory == nil {
			continue
		}
		if center == nil && p.Inventory.FulfillmentCenterID == "" {
			p.Inventory = nil
			continue
		}
		p.Inventory.ProductID = p.ID
		if p.Inventory.FulfillmentCenterID == "" {
			p.Inventory.FulfillmentCenterID = center.ID
		}
		productIDs = append(productIDs, p.ID)
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	existing, err := r.stores.Inventories.GetInventories(ctx, distinct(productIDs))
	if err != nil {
		return nil, fmt.Errorf("load inventories: %w", err)
	}

	out := make([]catalog.Inventory, 0, len(productIDs))
	for _, p := range products {
		if p.Inventory == nil || p.Inventory.ProductID == "" {
			continue
		}
		inv := *p.Inventory
		for _, ex := range existing {
			if ex.ProductID == inv.ProductID && ex.FulfillmentCenterID == inv.FulfillmentCenterID {
				inv = mergeInventory(inv, ex)
				break
			}
		}
		out = append(out, inv)
	}
	return out, nil
}

// resolvePrices binds each product's prices to the product and merges the
// stored price each one matches.
func (r *run) resolvePrices(ctx context.Context, products []*CsvProduct) ([]catalog.Price, error) {
	var prices []catalog.Price
	for _, p := range products {
		for _, price := range p.Prices {
			price.ProductID = p.ID
			if price.MinQuantity == 0 {
				price.MinQuantity = 1
			}
			prices = append(prices, price)
		}
	}
	if len(prices) == 0 {
		return nil, nil
	}

	var byID, byPricelist, rest []int
	for i, price := range prices {
		switch {
		case price.ID != "":
			byID = append(byID, i)
		case price.PricelistID != "":
			byPricelist = append(byPricelist, i)
		default:
			rest = append(rest, i)
		}
	}

	if err := r.mergePricesByID(ctx, prices, byID); err != nil {
		return nil, err
	}
	if err := r.mergePricesByPricelist(ctx, prices, byPricelist); err != nil {
		return nil, err
	}
	if err := r.mergePricesByCurrency(ctx, prices, rest); err != nil {
		return nil, err
	}

	for i := range prices {
		if prices[i].Currency == "" {
			prices[i].Currency = strings.ToUpper(r.opts.DefaultCurrency)
		}
	}
	return prices, nil
}

func (r *run) mergePricesByID(ctx context.Context, prices []catalog.Price, idx []int) error {
	if len(idx) == 0 {
		return nil
	}
	ids := make([]string, 0, len(idx))
	for _, i := range idx {
		ids = append(ids, prices[i].ID)
	}

	var existing []catalog.Price
	for _, page := range chunk(distinct(ids), r.opts.SearchBatchSize) {
		found, err := r.stores.Prices.GetPrices(ctx, page)
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		existing = append(existing, found...)
	}

	for _, i := range idx {
		for _, ex := range existing {
			if ex.ID == prices[i].ID {
				prices[i] = mergePrice(prices[i], ex)
				break
			}
		}
	}
	return nil
}

func (r *run) mergePricesByPricelist(ctx context.Context, prices []catalog.Price, idx []int) error {
	if len(idx) == 0 {
		return nil
	}

	groups := make(map[string][]string)
	var order []string
	for _, i := range idx {
		pl := prices[i].PricelistID
		if _, ok := groups[pl]; !ok {
			order = append(order, pl)
		}
		groups[pl] = append(groups[pl], prices[i].ProductID)
	}

	var existing []catalog.Price
	for _, pl := range order {
		found, err := r.searchPrices(ctx, distinct(groups[pl]), pl)
		if err != nil {
			return err
		}
		existing = append(existing, found...)
	}

	for _, i := range idx {
		for _, ex := range existing {
			if strings.EqualFold(ex.ProductID, prices[i].ProductID) && strings.EqualFold(ex.PricelistID, prices[i].PricelistID) {
				prices[i] = mergePrice(prices[i], ex)
				break
			}
		}
	}
	return nil
}

func (r *run) mergePricesByCurrency(ctx context.Context, prices []catalog.Price, idx []int) error {
	if len(idx) == 0 {
		return nil
	}
	productIDs := make([]string, 0, len(idx))
	for _, i := range idx {
		productIDs = append(productIDs, prices[i].ProductID)
	}

	existing, err := r.searchPrices(ctx, distinct(productIDs), "")
	if err != nil {
		return err
	}

	for _, i := range idx {
		for _, ex := range existing {
			if !strings.EqualFold(ex.ProductID, prices[i].ProductID) {
				continue
			}
			if prices[i].Currency == "" || strings.EqualFold(ex.Currency, prices[i].Currency) {
				prices[i] = mergePrice(prices[i], ex)
				break
			}
		}
	}
	return nil
}

// searchPrices loads all prices of the products, optionally within one
// price list, paging product ids by the search batch size.
func (r *run) searchPrices(ctx context.Context, productIDs []string, pricelistID string) ([]catalog.Price, error) {
	var pricelists []string
	if pricelistID != "" {
		pricelists = []string{pricelistID}
	}

	take := r.opts.SearchBatchSize
	var out []catalog.Price
	for _, page := range chunk(productIDs, take) {
		found, err := searchAll(ctx, take, func(ctx context.Context, skip, take int) ([]catalog.Price, error) {
			return r.stores.Prices.SearchPrices(ctx, catalog.PriceSearchCriteria{
				ProductIDs:   page,
				PricelistIDs: pricelists,
				Skip:         skip,
				Take:         take,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("search prices: %w", err)
		}
		out = append(out, found...)
	}
	return out, nil
}
