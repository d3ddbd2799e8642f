package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalogcsv/internal/catalog"
	"github.com/JonMunkholm/catalogcsv/internal/core"
)

// Repository implements the importer's collaborator stores and the mapping
// template store on Postgres. Every Save call runs in its own transaction.
type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

// Stores bundles r as every collaborator of the importer.
func (r *Repository) Stores() core.Stores {
	return core.Stores{
		Catalogs:           r,
		Categories:         r,
		Products:           r,
		Prices:             r,
		Inventories:        r,
		FulfillmentCenters: r,
		Stores:             r,
		DictionaryItems:    r,
	}
}

func (r *Repository) queries() *Queries {
	return New(r.Pool)
}

// inTx runs fn in a transaction, committing when it returns nil.
func (r *Repository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(New(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// pageLimit turns a Skip/Take pair into OFFSET/LIMIT. Take <= 0 is unbounded.
func pageLimit(skip, take int) (int32, pgtype.Int4) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		return int32(skip), pgtype.Int4{Valid: false}
	}
	return int32(skip), pgtype.Int4{Int32: int32(take), Valid: true}
}

// integrityError converts a constraint violation into a validation error
// naming the rejected entity. Other errors are returned unchanged.
func integrityError(err error, field, value string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || !strings.HasPrefix(pgErr.Code, "23") {
		return err
	}

	msg := fmt.Sprintf("%s '%s' violates %s", field, value, pgErr.ConstraintName)
	if pgErr.Code == uniqueViolation {
		msg = fmt.Sprintf("%s '%s' already exists", field, value)
	}
	return &catalog.ValidationError{Errors: []catalog.FieldError{{Field: field, Message: msg}}}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// =============================================================================
// core.CatalogStore
// =============================================================================

func (r *Repository) GetCatalog(ctx context.Context, id string) (*catalog.Catalog, error) {
	row, err := r.queries().GetCatalog(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("catalog %s: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog %s: %w", id, err)
	}

	c := &catalog.Catalog{
		ID:              row.ID,
		Name:            row.Name,
		DefaultLanguage: FromPgText(row.DefaultLanguage),
	}
	if err := fromJSONB(row.Languages, &c.Languages); err != nil {
		return nil, err
	}
	if err := fromJSONB(row.Properties, &c.Properties); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveCatalog creates or replaces a catalog.
func (r *Repository) SaveCatalog(ctx context.Context, c catalog.Catalog) error {
	languages, err := toJSONB(c.Languages, "[]")
	if err != nil {
		return err
	}
	props, err := toJSONB(c.Properties, "[]")
	if err != nil {
		return err
	}

	err = r.queries().UpsertCatalog(ctx, UpsertCatalogParams{
		ID:              c.ID,
		Name:            c.Name,
		DefaultLanguage: ToPgText(c.DefaultLanguage),
		Languages:       languages,
		Properties:      props,
	})
	if err != nil {
		return fmt.Errorf("save catalog %s: %w", c.ID, err)
	}
	return nil
}

// ResetCatalogData deletes every imported product, category, price,
// inventory record and dictionary item.
func (r *Repository) ResetCatalogData(ctx context.Context) error {
	if err := r.queries().ResetCatalogData(ctx); err != nil {
		return fmt.Errorf("reset catalog data: %w", err)
	}
	return nil
}

// =============================================================================
// core.CategoryStore
// =============================================================================

func categoryFromRow(row Category) (catalog.Category, error) {
	c := catalog.Category{
		ID:        row.ID,
		CatalogID: row.CatalogID,
		ParentID:  FromPgText(row.ParentID),
		Code:      row.Code,
		Name:      row.Name,
		Path:      FromPgText(row.Path),
	}
	if err := fromJSONB(row.Properties, &c.Properties); err != nil {
		return catalog.Category{}, err
	}
	return c, nil
}

func categoriesFromRows(rows []Category) ([]catalog.Category, error) {
	out := make([]catalog.Category, 0, len(rows))
	for _, row := range rows {
		c, err := categoryFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", row.ID, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repository) GetCategories(ctx context.Context, ids []string) ([]catalog.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.queries().GetCategoriesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	return categoriesFromRows(rows)
}

func (r *Repository) SearchCategories(ctx context.Context, criteria catalog.CategorySearchCriteria) ([]catalog.Category, error) {
	offset, limit := pageLimit(criteria.Skip, criteria.Take)
	rows, err := r.queries().SearchCategories(ctx, SearchCategoriesParams{
		CatalogID: criteria.CatalogID,
		OnlyRoot:  criteria.OnlyRoot,
		ParentID:  criteria.ParentID,
		Keyword:   criteria.Keyword,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	return categoriesFromRows(rows)
}

func (r *Repository) SaveCategories(ctx context.Context, categories []*catalog.Category) error {
	ids := make([]string, len(categories))
	err := r.inTx(ctx, func(q *Queries) error {
		for i, c := range categories {
			ids[i] = newID(c.ID)
			props, err := toJSONB(c.Properties, "[]")
			if err != nil {
				return err
			}
			err = q.UpsertCategory(ctx, UpsertCategoryParams{
				ID:         ids[i],
				CatalogID:  c.CatalogID,
				ParentID:   ToPgText(c.ParentID),
				Code:       c.Code,
				Name:       c.Name,
				Path:       ToPgText(c.Path),
				Properties: props,
			})
			if err != nil {
				return integrityError(err, "category", c.Name)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save categories: %w", err)
	}

	for i, c := range categories {
		c.ID = ids[i]
	}
	return nil
}

// =============================================================================
// core.ProductStore
// =============================================================================

func productToRow(p *catalog.Product, id string) (Product, error) {
	row := Product{
		ID:                     id,
		CatalogID:              p.CatalogID,
		CategoryID:             ToPgText(p.CategoryID),
		MainProductID:          ToPgText(p.MainProductID),
		Code:                   p.Code,
		Name:                   p.Name,
		OuterID:                ToPgText(p.OuterID),
		IsActive:               ToPgBool(p.IsActive),
		IsBuyable:              ToPgBool(p.IsBuyable),
		TrackInventory:         ToPgBool(p.TrackInventory),
		Priority:               ToPgInt4(p.Priority),
		MinQuantity:            ToPgInt4(p.MinQuantity),
		MaxQuantity:            ToPgInt4(p.MaxQuantity),
		ManufacturerPartNumber: ToPgText(p.ManufacturerPartNumber),
		Gtin:                   ToPgText(p.Gtin),
		MeasureUnit:            ToPgText(p.MeasureUnit),
		WeightUnit:             ToPgText(p.WeightUnit),
		Weight:                 ToPgNumericPtr(p.Weight),
		Height:                 ToPgNumericPtr(p.Height),
		Length:                 ToPgNumericPtr(p.Length),
		Width:                  ToPgNumericPtr(p.Width),
		PackageType:            ToPgText(p.PackageType),
		TaxType:                ToPgText(p.TaxType),
		ProductType:            ToPgText(p.ProductType),
		ShippingType:           ToPgText(p.ShippingType),
		Vendor:                 ToPgText(p.Vendor),
		DownloadType:           ToPgText(p.DownloadType),
		DownloadExpiration:     ToPgTimestamptz(p.DownloadExpiration),
		HasUserAgreement:       ToPgBool(p.HasUserAgreement),
		MaxNumberOfDownload:    ToPgInt4(p.MaxNumberOfDownload),
		StartDate:              ToPgTimestamptz(p.StartDate),
		EndDate:                ToPgTimestamptz(p.EndDate),
	}

	var err error
	if row.Images, err = toJSONB(p.Images, "[]"); err != nil {
		return Product{}, err
	}
	if row.Reviews, err = toJSONB(p.Reviews, "[]"); err != nil {
		return Product{}, err
	}
	if row.SeoInfos, err = toJSONB(p.SeoInfos, "[]"); err != nil {
		return Product{}, err
	}
	if row.Properties, err = toJSONB(p.Properties, "[]"); err != nil {
		return Product{}, err
	}
	if row.Extra, err = toJSONB(p.Extra, "{}"); err != nil {
		return Product{}, err
	}
	return row, nil
}

func productFromRow(row Product) (catalog.Product, error) {
	p := catalog.Product{
		ID:                     row.ID,
		CatalogID:              row.CatalogID,
		CategoryID:             FromPgText(row.CategoryID),
		MainProductID:          FromPgText(row.MainProductID),
		Code:                   row.Code,
		Name:                   row.Name,
		OuterID:                FromPgText(row.OuterID),
		IsActive:               FromPgBool(row.IsActive),
		IsBuyable:              FromPgBool(row.IsBuyable),
		TrackInventory:         FromPgBool(row.TrackInventory),
		Priority:               FromPgInt4(row.Priority),
		MinQuantity:            FromPgInt4(row.MinQuantity),
		MaxQuantity:            FromPgInt4(row.MaxQuantity),
		ManufacturerPartNumber: FromPgText(row.ManufacturerPartNumber),
		Gtin:                   FromPgText(row.Gtin),
		MeasureUnit:            FromPgText(row.MeasureUnit),
		WeightUnit:             FromPgText(row.WeightUnit),
		Weight:                 FromPgNumeric(row.Weight),
		Height:                 FromPgNumeric(row.Height),
		Length:                 FromPgNumeric(row.Length),
		Width:                  FromPgNumeric(row.Width),
		PackageType:            FromPgText(row.PackageType),
		TaxType:                FromPgText(row.TaxType),
		ProductType:            FromPgText(row.ProductType),
		ShippingType:           FromPgText(row.ShippingType),
		Vendor:                 FromPgText(row.Vendor),
		DownloadType:           FromPgText(row.DownloadType),
		DownloadExpiration:     FromPgTimestamptz(row.DownloadExpiration),
		HasUserAgreement:       FromPgBool(row.HasUserAgreement),
		MaxNumberOfDownload:    FromPgInt4(row.MaxNumberOfDownload),
		StartDate:              FromPgTimestamptz(row.StartDate),
		EndDate:                FromPgTimestamptz(row.EndDate),
	}

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{row.Images, &p.Images},
		{row.Reviews, &p.Reviews},
		{row.SeoInfos, &p.SeoInfos},
		{row.Properties, &p.Properties},
		{row.Extra, &p.Extra},
	} {
		if err := fromJSONB(col.raw, col.dst); err != nil {
			return catalog.Product{}, err
		}
	}
	if len(p.Extra) == 0 {
		p.Extra = nil
	}
	return p, nil
}

func (r *Repository) GetProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.queries().GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	out := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		p, err := productFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", row.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) SearchProductIDsByCode(ctx context.Context, catalogID string, codes []string) ([]catalog.ProductCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.queries().SearchProductIDsByCode(ctx, catalogID, lowerAll(codes))
	if err != nil {
		return nil, fmt.Errorf("search products by code: %w", err)
	}

	out := make([]catalog.ProductCode, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.ProductCode{ID: row.ID, Code: row.Code})
	}
	return out, nil
}

// SaveProducts upserts the batch atomically. Ids are assigned to new
// products only when the batch commits.
func (r *Repository) SaveProducts(ctx context.Context, products []*catalog.Product) error {
	ids := make([]string, len(products))
	err := r.inTx(ctx, func(q *Queries) error {
		for i, p := range products {
			ids[i] = newID(p.ID)
			row, err := productToRow(p, ids[i])
			if err != nil {
				return fmt.Errorf("product %s: %w", p.Code, err)
			}
			if err := q.UpsertProduct(ctx, row); err != nil {
				return integrityError(err, "code", p.Code)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save products: %w", err)
	}

	for i, p := range products {
		p.ID = ids[i]
	}
	return nil
}

// =============================================================================
// core.PriceStore
// =============================================================================

func pricesFromRows(rows []Price) []catalog.Price {
	out := make([]catalog.Price, 0, len(rows))
	for _, row := range rows {
		p := catalog.Price{
			ID:          row.ID,
			PricelistID: FromPgText(row.PricelistID),
			ProductID:   row.ProductID,
			Currency:    row.Currency,
			Sale:        FromPgNumeric(row.Sale),
			MinQuantity: int(row.MinQuantity),
		}
		if list := FromPgNumeric(row.List); list != nil {
			p.List = *list
		}
		out = append(out, p)
	}
	return out
}

func (r *Repository) GetPrices(ctx context.Context, ids []string) ([]catalog.Price, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.queries().GetPricesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}
	return pricesFromRows(rows), nil
}

func (r *Repository) SearchPrices(ctx context.Context, criteria catalog.PriceSearchCriteria) ([]catalog.Price, error) {
	offset, limit := pageLimit(criteria.Skip, criteria.Take)
	rows, err := r.queries().SearchPrices(ctx, SearchPricesParams{
		ProductIDs:   nonNil(criteria.ProductIDs),
		PricelistIDs: nonNil(criteria.PricelistIDs),
		Offset:       offset,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search prices: %w", err)
	}
	return pricesFromRows(rows), nil
}

func (r *Repository) SavePrices(ctx context.Context, prices []catalog.Price) error {
	err := r.inTx(ctx, func(q *Queries) error {
		for _, p := range prices {
			err := q.UpsertPrice(ctx, Price{
				ID:          newID(p.ID),
				PricelistID: ToPgText(p.PricelistID),
				ProductID:   p.ProductID,
				Currency:    p.Currency,
				List:        ToPgNumeric(p.List),
				Sale:        ToPgNumericPtr(p.Sale),
				MinQuantity: int32(p.MinQuantity),
			})
			if err != nil {
				return integrityError(err, "price", p.ProductID+"/"+p.Currency)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save prices: %w", err)
	}
	return nil
}

// nonNil keeps empty filters encodable as an empty text[] instead of NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// =============================================================================
// core.InventoryStore, core.FulfillmentCenterStore, core.StoreReader
// =============================================================================

func (r *Repository) GetInventories(ctx context.Context, productIDs []string) ([]catalog.Inventory, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := r.queries().GetInventoriesByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get inventories: %w", err)
	}

	out := make([]catalog.Inventory, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.Inventory{
			ProductID:                 row.ProductID,
			FulfillmentCenterID:       row.FulfillmentCenterID,
			InStockQuantity:           row.InStockQuantity,
			ReservedQuantity:          row.ReservedQuantity,
			AllowBackorder:            row.AllowBackorder,
			AllowPreorder:             row.AllowPreorder,
			BackorderAvailabilityDate: FromPgTimestamptz(row.BackorderAvailabilityDate),
			BackorderQuantity:         row.BackorderQuantity,
			PreorderQuantity:          row.PreorderQuantity,
			InTransit:                 row.InTransit,
		})
	}
	return out, nil
}

func (r *Repository) SaveInventories(ctx context.Context, inventories []catalog.Inventory) error {
	err := r.inTx(ctx, func(q *Queries) error {
		for _, inv := range inventories {
			err := q.UpsertInventory(ctx, Inventory{
				ProductID:                 inv.ProductID,
				FulfillmentCenterID:       inv.FulfillmentCenterID,
				InStockQuantity:           inv.InStockQuantity,
				ReservedQuantity:          inv.ReservedQuantity,
				AllowBackorder:            inv.AllowBackorder,
				AllowPreorder:             inv.AllowPreorder,
				BackorderAvailabilityDate: ToPgTimestamptz(inv.BackorderAvailabilityDate),
				BackorderQuantity:         inv.BackorderQuantity,
				PreorderQuantity:          inv.PreorderQuantity,
				InTransit:                 inv.InTransit,
			})
			if err != nil {
				return integrityError(err, "inventory", inv.ProductID+"/"+inv.FulfillmentCenterID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save inventories: %w", err)
	}
	return nil
}

func (r *Repository) SearchFulfillmentCenters(ctx context.Context, criteria catalog.FulfillmentCenterSearchCriteria) ([]catalog.FulfillmentCenter, error) {
	offset, limit := pageLimit(criteria.Skip, criteria.Take)
	rows, err := r.queries().ListFulfillmentCenters(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("search fulfillment centers: %w", err)
	}

	out := make([]catalog.FulfillmentCenter, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.FulfillmentCenter{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

// SaveFulfillmentCenter creates or renames a fulfillment center.
func (r *Repository) SaveFulfillmentCenter(ctx context.Context, fc catalog.FulfillmentCenter) error {
	if err := r.queries().UpsertFulfillmentCenter(ctx, fc.ID, fc.Name); err != nil {
		return fmt.Errorf("save fulfillment center %s: %w", fc.ID, err)
	}
	return nil
}

// GetStores matches ids case-insensitively.
func (r *Repository) GetStores(ctx context.Context, ids []string) ([]catalog.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.queries().GetStoresByIDs(ctx, lowerAll(ids))
	if err != nil {
		return nil, fmt.Errorf("get stores: %w", err)
	}

	out := make([]catalog.Store, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.Store{ID: row.ID, Name: row.Name, CatalogID: FromPgText(row.CatalogID)})
	}
	return out, nil
}

// SaveStore creates or replaces a store.
func (r *Repository) SaveStore(ctx context.Context, s catalog.Store) error {
	if err := r.queries().UpsertStore(ctx, s.ID, s.Name, ToPgText(s.CatalogID)); err != nil {
		return fmt.Errorf("save store %s: %w", s.ID, err)
	}
	return nil
}

// =============================================================================
// core.DictionaryItemStore
// =============================================================================

func (r *Repository) SearchDictionaryItems(ctx context.Context, criteria catalog.DictionaryItemSearchCriteria) ([]catalog.DictionaryItem, error) {
	offset, limit := pageLimit(criteria.Skip, criteria.Take)
	rows, err := r.queries().SearchDictionaryItems(ctx, SearchDictionaryItemsParams{
		PropertyIDs: nonNil(criteria.PropertyIDs),
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search dictionary items: %w", err)
	}

	out := make([]catalog.DictionaryItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, catalog.DictionaryItem{
			ID:         row.ID,
			PropertyID: row.PropertyID,
			Alias:      row.Alias,
			ColorCode:  FromPgText(row.ColorCode),
		})
	}
	return out, nil
}

func (r *Repository) SaveDictionaryItems(ctx context.Context, items []*catalog.DictionaryItem) error {
	ids := make([]string, len(items))
	err := r.inTx(ctx, func(q *Queries) error {
		for i, item := range items {
			ids[i] = newID(item.ID)
			err := q.UpsertDictionaryItem(ctx, DictionaryItem{
				ID:         ids[i],
				PropertyID: item.PropertyID,
				Alias:      item.Alias,
				ColorCode:  ToPgText(item.ColorCode),
			})
			if err != nil {
				return integrityError(err, "alias", item.Alias)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save dictionary items: %w", err)
	}

	for i, item := range items {
		item.ID = ids[i]
	}
	return nil
}
