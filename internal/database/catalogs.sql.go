package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCatalog = `-- name: GetCatalog :one
SELECT id, name, default_language, languages, properties
FROM catalogs
WHERE id = $1
`

func (q *Queries) GetCatalog(ctx context.Context, id string) (Catalog, error) {
	row := q.db.QueryRow(ctx, getCatalog, id)
	var i Catalog
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.DefaultLanguage,
		&i.Languages,
		&i.Properties,
	)
	return i, err
}

const upsertCatalog = `-- name: UpsertCatalog :exec
INSERT INTO catalogs (id, name, default_language, languages, properties)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    default_language = EXCLUDED.default_language,
    languages = EXCLUDED.languages,
    properties = EXCLUDED.properties
`

type UpsertCatalogParams struct {
	ID              string
	Name            string
	DefaultLanguage pgtype.Text
	Languages       []byte
	Properties      []byte
}

func (q *Queries) UpsertCatalog(ctx context.Context, arg UpsertCatalogParams) error {
	_, err := q.db.Exec(ctx, upsertCatalog,
		arg.ID,
		arg.Name,
		arg.DefaultLanguage,
		arg.Languages,
		arg.Properties,
	)
	return err
}

const resetCatalogData = `-- name: ResetCatalogData :exec
TRUNCATE inventories, prices, products, categories, dictionary_items
`

// ResetCatalogData removes every imported entity. Catalogs, stores,
// fulfillment centers and mapping templates are kept.
func (q *Queries) ResetCatalogData(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetCatalogData)
	return err
}
