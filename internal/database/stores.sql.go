package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getStoresByIDs = `-- name: GetStoresByIDs :many
SELECT id, name, catalog_id
FROM stores
WHERE lower(id) = ANY($1::text[])
`

// GetStoresByIDs expects lower-cased ids.
func (q *Queries) GetStoresByIDs(ctx context.Context, ids []string) ([]Store, error) {
	rows, err := q.db.Query(ctx, getStoresByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Store
	for rows.Next() {
		var i Store
		if err := rows.Scan(&i.ID, &i.Name, &i.CatalogID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertStore = `-- name: UpsertStore :exec
INSERT INTO stores (id, name, catalog_id)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    catalog_id = EXCLUDED.catalog_id
`

func (q *Queries) UpsertStore(ctx context.Context, id, name string, catalogID pgtype.Text) error {
	_, err := q.db.Exec(ctx, upsertStore, id, name, catalogID)
	return err
}

const listFulfillmentCenters = `-- name: ListFulfillmentCenters :many
SELECT id, name
FROM fulfillment_centers
ORDER BY name, id
OFFSET $1
LIMIT $2
`

func (q *Queries) ListFulfillmentCenters(ctx context.Context, offset int32, limit pgtype.Int4) ([]FulfillmentCenter, error) {
	rows, err := q.db.Query(ctx, listFulfillmentCenters, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FulfillmentCenter
	for rows.Next() {
		var i FulfillmentCenter
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertFulfillmentCenter = `-- name: UpsertFulfillmentCenter :exec
INSERT INTO fulfillment_centers (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
`

func (q *Queries) UpsertFulfillmentCenter(ctx context.Context, id, name string) error {
	_, err := q.db.Exec(ctx, upsertFulfillmentCenter, id, name)
	return err
}
