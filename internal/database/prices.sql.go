package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func collectPrices(rows pgx.Rows) ([]Price, error) {
	defer rows.Close()
	var items []Price
	for rows.Next() {
		var i Price
		if err := rows.Scan(
			&i.ID,
			&i.PricelistID,
			&i.ProductID,
			&i.Currency,
			&i.List,
			&i.Sale,
			&i.MinQuantity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPricesByIDs = `-- name: GetPricesByIDs :many
SELECT id, pricelist_id, product_id, currency, list, sale, min_quantity
FROM prices
WHERE id = ANY($1::text[])
`

func (q *Queries) GetPricesByIDs(ctx context.Context, ids []string) ([]Price, error) {
	rows, err := q.db.Query(ctx, getPricesByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectPrices(rows)
}

const searchPrices = `-- name: SearchPrices :many
SELECT id, pricelist_id, product_id, currency, list, sale, min_quantity
FROM prices
WHERE (cardinality($1::text[]) = 0 OR product_id = ANY($1::text[]))
  AND (cardinality($2::text[]) = 0 OR pricelist_id = ANY($2::text[]))
ORDER BY product_id, id
OFFSET $3
LIMIT $4
`

type SearchPricesParams struct {
	ProductIDs   []string
	PricelistIDs []string
	Offset       int32
	Limit        pgtype.Int4
}

func (q *Queries) SearchPrices(ctx context.Context, arg SearchPricesParams) ([]Price, error) {
	rows, err := q.db.Query(ctx, searchPrices,
		arg.ProductIDs,
		arg.PricelistIDs,
		arg.Offset,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	return collectPrices(rows)
}

const upsertPrice = `-- name: UpsertPrice :exec
INSERT INTO prices (id, pricelist_id, product_id, currency, list, sale, min_quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    pricelist_id = EXCLUDED.pricelist_id,
    product_id = EXCLUDED.product_id,
    currency = EXCLUDED.currency,
    list = EXCLUDED.list,
    sale = EXCLUDED.sale,
    min_quantity = EXCLUDED.min_quantity
`

func (q *Queries) UpsertPrice(ctx context.Context, arg Price) error {
	_, err := q.db.Exec(ctx, upsertPrice,
		arg.ID,
		arg.PricelistID,
		arg.ProductID,
		arg.Currency,
		arg.List,
		arg.Sale,
		arg.MinQuantity,
	)
	return err
}
