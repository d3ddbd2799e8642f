package core

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
)

// Collaborator stores used by the importer. Implementations live in
// internal/database (Postgres) and internal/memstore (in-memory).
//
// Get methods silently omit ids they cannot find. Save methods assign ids to
// new entities in place. A save that rejects entities returns a
// *catalog.ValidationError.

type CatalogStore interface {
	// GetCatalog returns catalog.ErrNotFound when the id is unknown.
	GetCatalog(ctx context.Context, id string) (*catalog.Catalog, error)
}

type CategoryStore interface {
	GetCategories(ctx context.Context, ids []string) ([]catalog.Category, error)
	SearchCategories(ctx context.Context, criteria catalog.CategorySearchCriteria) ([]catalog.Category, error)
	SaveCategories(ctx context.Context, categories []*catalog.Category) error
}

type ProductStore interface {
	GetProducts(ctx context.Context, ids []string) ([]catalog.Product, error)
	// SearchProductIDsByCode matches codes case-insensitively within one catalog.
	SearchProductIDsByCode(ctx context.Context, catalogID string, codes []string) ([]catalog.ProductCode, error)
	SaveProducts(ctx context.Context, products []*catalog.Product) error
}

type PriceStore interface {
	GetPrices(ctx context.Context, ids []string) ([]catalog.Price, error)
	SearchPrices(ctx context.Context, criteria catalog.PriceSearchCriteria) ([]catalog.Price, error)
	SavePrices(ctx context.Context, prices []catalog.Price) error
}

type InventoryStore interface {
	GetInventories(ctx context.Context, productIDs []string) ([]catalog.Inventory, error)
	SaveInventories(ctx context.Context, inventories []catalog.Inventory) error
}

type FulfillmentCenterStore interface {
	SearchFulfillmentCenters(ctx context.Context, criteria catalog.FulfillmentCenterSearchCriteria) ([]catalog.FulfillmentCenter, error)
}

type StoreReader interface {
	GetStores(ctx context.Context, ids []string) ([]catalog.Store, error)
}

type DictionaryItemStore interface {
	SearchDictionaryItems(ctx context.Context, criteria catalog.DictionaryItemSearchCriteria) ([]catalog.DictionaryItem, error)
	SaveDictionaryItems(ctx context.Context, items []*catalog.DictionaryItem) error
}

// SkuGenerator produces a code for products imported without one.
type SkuGenerator interface {
	GenerateSku(ctx context.Context, p *catalog.Product) (string, error)
}

// Stores bundles every collaborator the importer needs. Skus may be nil, in
// which case RandomSkuGenerator is used.
type Stores struct {
	Catalogs           CatalogStore
	Categories         CategoryStore
	Products           ProductStore
	Prices             PriceStore
	Inventories        InventoryStore
	FulfillmentCenters FulfillmentCenterStore
	Stores             StoreReader
	DictionaryItems    DictionaryItemStore
	Skus               SkuGenerator
}

// RandomSkuGenerator returns 12 upper-case hex characters of a random uuid.
type RandomSkuGenerator struct{}

func (RandomSkuGenerator) GenerateSku(_ context.Context, _ *catalog.Product) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:12]), nil
}

// searchAll pages through a Skip/Take search until a short page.
func searchAll[T any](ctx context.Context, take int, search func(ctx context.Context, skip, take int) ([]T, error)) ([]T, error) {
	if take <= 0 {
		take = DefaultSearchBatchSize
	}
	var all []T
	for skip := 0; ; skip += take {
		page, err := search(ctx, skip, take)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < take {
			return all, nil
		}
	}
}
