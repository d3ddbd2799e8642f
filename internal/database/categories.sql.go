package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getCategoriesByIDs = `-- name: GetCategoriesByIDs :many
SELECT id, catalog_id, parent_id, code, name, path, properties
FROM categories
WHERE id = ANY($1::text[])
`

func (q *Queries) GetCategoriesByIDs(ctx context.Context, ids []string) ([]Category, error) {
	rows, err := q.db.Query(ctx, getCategoriesByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.CatalogID,
			&i.ParentID,
			&i.Code,
			&i.Name,
			&i.Path,
			&i.Properties,
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

const searchCategories = `-- name: SearchCategories :many
SELECT id, catalog_id, parent_id, code, name, path, properties
FROM categories
WHERE ($1::text = '' OR catalog_id = $1)
  AND (NOT $2::boolean OR parent_id IS NULL)
  AND ($3::text = '' OR parent_id = $3)
  AND ($4::text = '' OR lower(name) = lower($4))
ORDER BY name, id
OFFSET $5
LIMIT $6
`

type SearchCategoriesParams struct {
	CatalogID string
	OnlyRoot  bool
	ParentID  string
	Keyword   string
	Offset    int32
	// Limit NULL returns every row.
	Limit pgtype.Int4
}

func (q *Queries) SearchCategories(ctx context.Context, arg SearchCategoriesParams) ([]Category, error) {
	rows, err := q.db.Query(ctx, searchCategories,
		arg.CatalogID,
		arg.OnlyRoot,
		arg.ParentID,
		arg.Keyword,
		arg.Offset,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.CatalogID,
			&i.ParentID,
			&i.Code,
			&i.Name,
			&i.Path,
			&i.Properties,
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

const upsertCategory = `-- name: UpsertCategory :exec
INSERT INTO categories (id, catalog_id, parent_id, code, name, path, properties)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    catalog_id = EXCLUDED.catalog_id,
    parent_id = EXCLUDED.parent_id,
    code = EXCLUDED.code,
    name = EXCLUDED.name,
    path = EXCLUDED.path,
    properties = EXCLUDED.properties
`

type UpsertCategoryParams struct {
	ID         string
	CatalogID  string
	ParentID   pgtype.Text
	Code       string
	Name       string
	Path       pgtype.Text
	Properties []byte
}

func (q *Queries) UpsertCategory(ctx context.Context, arg UpsertCategoryParams) error {
	_, err := q.db.Exec(ctx, upsertCategory,
		arg.ID,
		arg.CatalogID,
		arg.ParentID,
		arg.Code,
		arg.Name,
		arg.Path,
		arg.Properties,
	)
	return err
}
