package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// Fixture is the reference data an import reads but never creates.
type Fixture struct {
	Catalogs           []catalog.Catalog           `json:"catalogs"`
	Stores             []catalog.Store             `json:"stores"`
	FulfillmentCenters []catalog.FulfillmentCenter `json:"fulfillmentCenters"`
	DictionaryItems    []catalog.DictionaryItem    `json:"dictionaryItems"`
}

// Seeder stores fixture entities. database.Repository and memstore.Store
// both implement it.
type Seeder interface {
	SaveCatalog(ctx context.Context, c catalog.Catalog) error
	SaveStore(ctx context.Context, s catalog.Store) error
	SaveFulfillmentCenter(ctx context.Context, fc catalog.FulfillmentCenter) error
	SaveDictionaryItems(ctx context.Context, items []*catalog.DictionaryItem) error
}

// SeedSummary counts what Seed wrote.
type SeedSummary struct {
	Catalogs           int
	Stores             int
	FulfillmentCenters int
	DictionaryItems    int
}

func (s SeedSummary) String() string {
	return fmt.Sprintf("%d catalogs, %d stores, %d fulfillment centers, %d dictionary items",
		s.Catalogs, s.Stores, s.FulfillmentCenters, s.DictionaryItems)
}

// LoadFixture decodes and checks a JSON fixture. Unknown fields are rejected
// so that typos do not silently drop data.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate reports every entity missing an id or a name, and dictionary
// items without a property.
func (f *Fixture) Validate() error {
	var errs []error
	check := func(kind string, i int, id, name string) {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("%s #%d: id is required", kind, i+1))
		}
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%s #%d: name is required", kind, i+1))
		}
	}

	for i, c := range f.Catalogs {
		check("catalog", i, c.ID, c.Name)
	}
	for i, s := range f.Stores {
		check("store", i, s.ID, s.Name)
	}
	for i, fc := range f.FulfillmentCenters {
		check("fulfillment center", i, fc.ID, fc.Name)
	}
	for i, item := range f.DictionaryItems {
		if item.PropertyID == "" {
			errs = append(errs, fmt.Errorf("dictionary item #%d: propertyId is required", i+1))
		}
		if item.Alias == "" {
			errs = append(errs, fmt.Errorf("dictionary item #%d: alias is required", i+1))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fixture: %w", errors.Join(errs...))
	}
	return nil
}

// Seed writes the fixture. Entities are upserted, so seeding twice is safe
// for everything that carries an id.
func Seed(ctx context.Context, s Seeder, f *Fixture) (SeedSummary, error) {
	var sum SeedSummary

	for _, c := range f.Catalogs {
		if err := s.SaveCatalog(ctx, c); err != nil {
			return sum, fmt.Errorf("seed catalog %s: %w", c.ID, err)
		}
		sum.Catalogs++
	}
	for _, st := range f.Stores {
		if err := s.SaveStore(ctx, st); err != nil {
			return sum, fmt.Errorf("seed store %s: %w", st.ID, err)
		}
		sum.Stores++
	}
	for _, fc := range f.FulfillmentCenters {
		if err := s.SaveFulfillmentCenter(ctx, fc); err != nil {
			return sum, fmt.Errorf("seed fulfillment center %s: %w", fc.ID, err)
		}
		sum.FulfillmentCenters++
	}

	if len(f.DictionaryItems) > 0 {
		items := make([]*catalog.DictionaryItem, len(f.DictionaryItems))
		for i := range f.DictionaryItems {
			item := f.DictionaryItems[i]
			items[i] = &item
		}
		if err := s.SaveDictionaryItems(ctx, items); err != nil {
			return sum, fmt.Errorf("seed dictionary items: %w", err)
		}
		sum.DictionaryItems = len(items)
	}

	return sum, nil
}
