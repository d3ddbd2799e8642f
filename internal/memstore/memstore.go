// Package memstore keeps catalog data in memory. It implements every store
// the importer needs and is used by tests and by the CLI's dry-run mode.
//
// Entities are copied on the way in and on the way out, so callers never
// share slices with the stored state.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// ProductCheck lets a test reject products the way a real store would.
// A non-empty result rejects the whole SaveProducts call.
type ProductCheck func(p catalog.Product) []catalog.FieldError

// Store is an in-memory catalog. The zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex

	catalogs        map[string]catalog.Catalog
	categories      table[catalog.Category]
	products        table[catalog.Product]
	prices          table[catalog.Price]
	inventories     table[catalog.Inventory]
	centers         []catalog.FulfillmentCenter
	stores          map[string]catalog.Store
	dictionaryItems table[catalog.DictionaryItem]
	templates       table[core.MappingTemplate]

	calls map[string]int

	// CheckProduct, when set, is applied to every product on save.
	CheckProduct ProductCheck
}

// New returns an empty store.
func New() *Store {
	return &Store{
		catalogs:        make(map[string]catalog.Catalog),
		categories:      newTable[catalog.Category](),
		products:        newTable[catalog.Product](),
		prices:          newTable[catalog.Price](),
		inventories:     newTable[catalog.Inventory](),
		stores:          make(map[string]catalog.Store),
		dictionaryItems: newTable[catalog.DictionaryItem](),
		templates:       newTable[core.MappingTemplate](),
		calls:           make(map[string]int),
	}
}

// Stores bundles s as every collaborator of the importer.
func (s *Store) Stores() core.Stores {
	return core.Stores{
		Catalogs:           s,
		Categories:         s,
		Products:           s,
		Prices:             s,
		Inventories:        s,
		FulfillmentCenters: s,
		Stores:             s,
		DictionaryItems:    s,
	}
}

// CallCount returns how many times the named method was called.
func (s *Store) CallCount(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

func (s *Store) record(method string) {
	s.calls[method]++
}

// table keeps entities by id in insertion order.
type table[T any] struct {
	order []string
	byID  map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{byID: make(map[string]T)}
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.byID[id]; !ok {
		t.order = append(t.order, id)
	}
	t.byID[id] = v
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	delete(t.byID, id)
	t.order = slices.DeleteFunc(t.order, func(o string) bool { return o == id })
	return true
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

func newID() string {
	return uuid.NewString()
}

// page applies Skip/Take. Take <= 0 returns everything after Skip.
func page[T any](items []T, skip, take int) []T {
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if take > 0 && take < len(items) {
		items = items[:take]
	}
	return items
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

// =============================================================================
// Seeding
// =============================================================================

// AddCatalog stores a catalog.
func (s *Store) AddCatalog(c catalog.Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Properties = cloneProperties(c.Properties)
	s.catalogs[c.ID] = c
}

// AddCategory stores a category, assigning an id when empty.
func (s *Store) AddCategory(c catalog.Category) catalog.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	c.Properties = cloneProperties(c.Properties)
	s.categories.put(c.ID, c)
	return c
}

// AddProduct stores a product, assigning an id when empty.
func (s *Store) AddProduct(p catalog.Product) catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	s.products.put(p.ID, cloneProduct(p))
	return p
}

// AddPrice stores a price, assigning an id when empty.
func (s *Store) AddPrice(p catalog.Price) catalog.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	s.prices.put(p.ID, p)
	return p
}

// AddInventory stores an inventory record.
func (s *Store) AddInventory(inv catalog.Inventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventories.put(inventoryKey(inv), inv)
}

// AddFulfillmentCenter stores a fulfillment center.
func (s *Store) AddFulfillmentCenter(fc catalog.FulfillmentCenter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers = append(s.centers, fc)
}

// AddStore stores a storefront.
func (s *Store) AddStore(st catalog.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[strings.ToLower(st.ID)] = st
}

// AddDictionaryItem stores a dictionary item, assigning an id when empty.
func (s *Store) AddDictionaryItem(item catalog.DictionaryItem) catalog.DictionaryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = newID()
	}
	s.dictionaryItems.put(item.ID, item)
	return item
}

// SaveCatalog stores a catalog. Together with SaveStore,
// SaveFulfillmentCenter and SaveDictionaryItems it lets fixtures be seeded
// the same way as into Postgres.
func (s *Store) SaveCatalog(_ context.Context, c catalog.Catalog) error {
	s.AddCatalog(c)
	return nil
}

func (s *Store) SaveStore(_ context.Context, st catalog.Store) error {
	s.AddStore(st)
	return nil
}

// SaveFulfillmentCenter stores fc, replacing a center with the same id.
func (s *Store) SaveFulfillmentCenter(_ context.Context, fc catalog.FulfillmentCenter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.centers {
		if existing.ID == fc.ID {
			s.centers[i] = fc
			return nil
		}
	}
	s.centers = append(s.centers, fc)
	return nil
}

// ResetCatalogData drops every imported entity.
func (s *Store) ResetCatalogData(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ResetCatalogData")

	s.categories = newTable[catalog.Category]()
	s.products = newTable[catalog.Product]()
	s.prices = newTable[catalog.Price]()
	s.inventories = newTable[catalog.Inventory]()
	s.dictionaryItems = newTable[catalog.DictionaryItem]()
	return nil
}

// =============================================================================
// Snapshots
// =============================================================================

// Products returns every stored product in insertion order.
func (s *Store) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.products.all()
	for i := range out {
		out[i] = cloneProduct(out[i])
	}
	return out
}

// ProductByCode returns the stored product with the code, case-insensitively.
func (s *Store) ProductByCode(code string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products.all() {
		if strings.EqualFold(p.Code, code) {
			return cloneProduct(p), true
		}
	}
	return catalog.Product{}, false
}

// Categories returns every stored category in insertion order.
func (s *Store) Categories() []catalog.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories.all()
}

// Prices returns every stored price in insertion order.
func (s *Store) Prices() []catalog.Price {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices.all()
}

// Inventories returns every stored inventory record in insertion order.
func (s *Store) Inventories() []catalog.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inventories.all()
}

// DictionaryItems returns every stored dictionary item in insertion order.
func (s *Store) DictionaryItems() []catalog.DictionaryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dictionaryItems.all()
}

// =============================================================================
// core.CatalogStore
// =============================================================================

func (s *Store) GetCatalog(_ context.Context, id string) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetCatalog")

	c, ok := s.catalogs[id]
	if !ok {
		return nil, fmt.Errorf("catalog %s: %w", id, catalog.ErrNotFound)
	}
	c.Properties = cloneProperties(c.Properties)
	return &c, nil
}

// =============================================================================
// core.CategoryStore
// =============================================================================

func (s *Store) GetCategories(_ context.Context, ids []string) ([]catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetCategories")

	var out []catalog.Category
	for _, id := range ids {
		if c, ok := s.categories.get(id); ok {
			c.Properties = cloneProperties(c.Properties)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) SearchCategories(_ context.Context, criteria catalog.CategorySearchCriteria) ([]catalog.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchCategories")

	var matched []catalog.Category
	for _, c := range s.categories.all() {
		if criteria.CatalogID != "" && c.CatalogID != criteria.CatalogID {
			continue
		}
		if criteria.OnlyRoot && c.ParentID != "" {
			continue
		}
		if criteria.ParentID != "" && c.ParentID != criteria.ParentID {
			continue
		}
		if criteria.Keyword != "" && !strings.EqualFold(c.Name, criteria.Keyword) {
			continue
		}
		matched = append(matched, c)
	}
	return page(matched, criteria.Skip, criteria.Take), nil
}

func (s *Store) SaveCategories(_ context.Context, categories []*catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SaveCategories")

	for _, c := range categories {
		if c.ID == "" {
			c.ID = newID()
		}
		stored := *c
		stored.Properties = cloneProperties(c.Properties)
		s.categories.put(c.ID, stored)
	}
	return nil
}

// =============================================================================
// core.ProductStore
// =============================================================================

func (s *Store) GetProducts(_ context.Context, ids []string) ([]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetProducts")

	var out []catalog.Product
	for _, id := range ids {
		if p, ok := s.products.get(id); ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (s *Store) SearchProductIDsByCode(_ context.Context, catalogID string, codes []string) ([]catalog.ProductCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchProductIDsByCode")

	var out []catalog.ProductCode
	for _, p := range s.products.all() {
		if p.CatalogID != catalogID || !containsFold(codes, p.Code) {
			continue
		}
		out = append(out, catalog.ProductCode{ID: p.ID, Code: p.Code})
	}
	return out, nil
}

func (s *Store) SaveProducts(_ context.Context, products []*catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SaveProducts")

	if s.CheckProduct != nil {
		var errs []catalog.FieldError
		for _, p := range products {
			errs = append(errs, s.CheckProduct(*p)...)
		}
		if len(errs) > 0 {
			return &catalog.ValidationError{Errors: errs}
		}
	}

	for _, p := range products {
		if p.ID == "" {
			p.ID = newID()
		}
		s.products.put(p.ID, cloneProduct(*p))
	}
	return nil
}

// =============================================================================
// core.PriceStore
// =============================================================================

func (s *Store) GetPrices(_ context.Context, ids []string) ([]catalog.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetPrices")

	var out []catalog.Price
	for _, id := range ids {
		if p, ok := s.prices.get(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SearchPrices(_ context.Context, criteria catalog.PriceSearchCriteria) ([]catalog.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchPrices")

	var matched []catalog.Price
	for _, p := range s.prices.all() {
		if len(criteria.ProductIDs) > 0 && !containsFold(criteria.ProductIDs, p.ProductID) {
			continue
		}
		if len(criteria.PricelistIDs) > 0 && !containsFold(criteria.PricelistIDs, p.PricelistID) {
			continue
		}
		matched = append(matched, p)
	}
	return page(matched, criteria.Skip, criteria.Take), nil
}

func (s *Store) SavePrices(_ context.Context, prices []catalog.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SavePrices")

	for _, p := range prices {
		if p.ID == "" {
			p.ID = newID()
		}
		s.prices.put(p.ID, p)
	}
	return nil
}

// =============================================================================
// core.InventoryStore, core.FulfillmentCenterStore, core.StoreReader
// =============================================================================

func inventoryKey(inv catalog.Inventory) string {
	return inv.ProductID + "|" + inv.FulfillmentCenterID
}

func (s *Store) GetInventories(_ context.Context, productIDs []string) ([]catalog.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetInventories")

	var out []catalog.Inventory
	for _, inv := range s.inventories.all() {
		if slices.Contains(productIDs, inv.ProductID) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *Store) SaveInventories(_ context.Context, inventories []catalog.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SaveInventories")

	for _, inv := range inventories {
		s.inventories.put(inventoryKey(inv), inv)
	}
	return nil
}

func (s *Store) SearchFulfillmentCenters(_ context.Context, criteria catalog.FulfillmentCenterSearchCriteria) ([]catalog.FulfillmentCenter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchFulfillmentCenters")
	return slices.Clone(page(s.centers, criteria.Skip, criteria.Take)), nil
}

func (s *Store) GetStores(_ context.Context, ids []string) ([]catalog.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetStores")

	var out []catalog.Store
	for _, id := range ids {
		if st, ok := s.stores[strings.ToLower(id)]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

// =============================================================================
// core.DictionaryItemStore
// =============================================================================

func (s *Store) SearchDictionaryItems(_ context.Context, criteria catalog.DictionaryItemSearchCriteria) ([]catalog.DictionaryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SearchDictionaryItems")

	var matched []catalog.DictionaryItem
	for _, item := range s.dictionaryItems.all() {
		if len(criteria.PropertyIDs) > 0 && !slices.Contains(criteria.PropertyIDs, item.PropertyID) {
			continue
		}
		matched = append(matched, item)
	}
	return page(matched, criteria.Skip, criteria.Take), nil
}

func (s *Store) SaveDictionaryItems(_ context.Context, items []*catalog.DictionaryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SaveDictionaryItems")

	for _, item := range items {
		if item.ID == "" {
			item.ID = newID()
		}
		s.dictionaryItems.put(item.ID, *item)
	}
	return nil
}

// =============================================================================
// Copies
// =============================================================================

func cloneProduct(p catalog.Product) catalog.Product {
	p.Images = slices.Clone(p.Images)
	p.Reviews = slices.Clone(p.Reviews)
	p.SeoInfos = slices.Clone(p.SeoInfos)
	p.Properties = cloneProperties(p.Properties)
	p.Extra = maps.Clone(p.Extra)
	return p
}

func cloneProperties(props []catalog.Property) []catalog.Property {
	if props == nil {
		return nil
	}
	out := make([]catalog.Property, len(props))
	for i, p := range props {
		p.Values = slices.Clone(p.Values)
		out[i] = p
	}
	return out
}
