package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const productColumns = `id, catalog_id, category_id, main_product_id, code, name, outer_id,
    is_active, is_buyable, track_inventory, priority, min_quantity, max_quantity,
    manufacturer_part_number, gtin, measure_unit, weight_unit, weight, height, length, width,
    package_type, tax_type, product_type, shipping_type, vendor,
    download_type, download_expiration, has_user_agreement, max_number_of_download,
    start_date, end_date, images, reviews, seo_infos, properties, extra`

func scanProduct(row pgx.Row) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.CatalogID,
		&i.CategoryID,
		&i.MainProductID,
		&i.Code,
		&i.Name,
		&i.OuterID,
		&i.IsActive,
		&i.IsBuyable,
		&i.TrackInventory,
		&i.Priority,
		&i.MinQuantity,
		&i.MaxQuantity,
		&i.ManufacturerPartNumber,
		&i.Gtin,
		&i.MeasureUnit,
		&i.WeightUnit,
		&i.Weight,
		&i.Height,
		&i.Length,
		&i.Width,
		&i.PackageType,
		&i.TaxType,
		&i.ProductType,
		&i.ShippingType,
		&i.Vendor,
		&i.DownloadType,
		&i.DownloadExpiration,
		&i.HasUserAgreement,
		&i.MaxNumberOfDownload,
		&i.StartDate,
		&i.EndDate,
		&i.Images,
		&i.Reviews,
		&i.SeoInfos,
		&i.Properties,
		&i.Extra,
	)
	return i, err
}

const getProductsByIDs = `-- name: GetProductsByIDs :many
SELECT ` + productColumns + `
FROM products
WHERE id = ANY($1::text[])
`

func (q *Queries) GetProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		i, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchProductIDsByCode = `-- name: SearchProductIDsByCode :many
SELECT id, code
FROM products
WHERE catalog_id = $1
  AND lower(code) = ANY($2::text[])
`

type SearchProductIDsByCodeRow struct {
	ID   string
	Code string
}

// SearchProductIDsByCode expects lower-cased codes.
func (q *Queries) SearchProductIDsByCode(ctx context.Context, catalogID string, codes []string) ([]SearchProductIDsByCodeRow, error) {
	rows, err := q.db.Query(ctx, searchProductIDsByCode, catalogID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SearchProductIDsByCodeRow
	for rows.Next() {
		var i SearchProductIDsByCodeRow
		if err := rows.Scan(&i.ID, &i.Code); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertProduct = `-- name: UpsertProduct :exec
INSERT INTO products (` + productColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
        $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)
ON CONFLICT (id) DO UPDATE SET
    catalog_id = EXCLUDED.catalog_id,
    category_id = EXCLUDED.category_id,
    main_product_id = EXCLUDED.main_product_id,
    code = EXCLUDED.code,
    name = EXCLUDED.name,
    outer_id = EXCLUDED.outer_id,
    is_active = EXCLUDED.is_active,
    is_buyable = EXCLUDED.is_buyable,
    track_inventory = EXCLUDED.track_inventory,
    priority = EXCLUDED.priority,
    min_quantity = EXCLUDED.min_quantity,
    max_quantity = EXCLUDED.max_quantity,
    manufacturer_part_number = EXCLUDED.manufacturer_part_number,
    gtin = EXCLUDED.gtin,
    measure_unit = EXCLUDED.measure_unit,
    weight_unit = EXCLUDED.weight_unit,
    weight = EXCLUDED.weight,
    height = EXCLUDED.height,
    length = EXCLUDED.length,
    width = EXCLUDED.width,
    package_type = EXCLUDED.package_type,
    tax_type = EXCLUDED.tax_type,
    product_type = EXCLUDED.product_type,
    shipping_type = EXCLUDED.shipping_type,
    vendor = EXCLUDED.vendor,
    download_type = EXCLUDED.download_type,
    download_expiration = EXCLUDED.download_expiration,
    has_user_agreement = EXCLUDED.has_user_agreement,
    max_number_of_download = EXCLUDED.max_number_of_download,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    images = EXCLUDED.images,
    reviews = EXCLUDED.reviews,
    seo_infos = EXCLUDED.seo_infos,
    properties = EXCLUDED.properties,
    extra = EXCLUDED.extra,
    updated_at = now()
`

func (q *Queries) UpsertProduct(ctx context.Context, arg Product) error {
	_, err := q.db.Exec(ctx, upsertProduct,
		arg.ID,
		arg.CatalogID,
		arg.CategoryID,
		arg.MainProductID,
		arg.Code,
		arg.Name,
		arg.OuterID,
		arg.IsActive,
		arg.IsBuyable,
		arg.TrackInventory,
		arg.Priority,
		arg.MinQuantity,
		arg.MaxQuantity,
		arg.ManufacturerPartNumber,
		arg.Gtin,
		arg.MeasureUnit,
		arg.WeightUnit,
		arg.Weight,
		arg.Height,
		arg.Length,
		arg.Width,
		arg.PackageType,
		arg.TaxType,
		arg.ProductType,
		arg.ShippingType,
		arg.Vendor,
		arg.DownloadType,
		arg.DownloadExpiration,
		arg.HasUserAgreement,
		arg.MaxNumberOfDownload,
		arg.StartDate,
		arg.EndDate,
		arg.Images,
		arg.Reviews,
		arg.SeoInfos,
		arg.Properties,
		arg.Extra,
	)
	return err
}
