package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const templateNameIndex = "mapping_templates_name_unique"

func scanTemplate(row pgx.Row) (MappingTemplate, error) {
	var i MappingTemplate
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Etag,
		&i.CsvColumns,
		&i.Mapping,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createMappingTemplate = `-- name: CreateMappingTemplate :one
INSERT INTO mapping_templates (id, name, etag, csv_columns, mapping)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, etag, csv_columns, mapping, created_at, updated_at
`

type CreateMappingTemplateParams struct {
	ID         string
	Name       string
	Etag       string
	CsvColumns []byte
	Mapping    []byte
}

func (q *Queries) CreateMappingTemplate(ctx context.Context, arg CreateMappingTemplateParams) (MappingTemplate, error) {
	row := q.db.QueryRow(ctx, createMappingTemplate,
		arg.ID,
		arg.Name,
		arg.Etag,
		arg.CsvColumns,
		arg.Mapping,
	)
	return scanTemplate(row)
}

const getMappingTemplate = `-- name: GetMappingTemplate :one
SELECT id, name, etag, csv_columns, mapping, created_at, updated_at
FROM mapping_templates
WHERE id = $1
`

func (q *Queries) GetMappingTemplate(ctx context.Context, id string) (MappingTemplate, error) {
	return scanTemplate(q.db.QueryRow(ctx, getMappingTemplate, id))
}

const listMappingTemplates = `-- name: ListMappingTemplates :many
SELECT id, name, etag, csv_columns, mapping, created_at, updated_at
FROM mapping_templates
ORDER BY lower(name)
`

func (q *Queries) ListMappingTemplates(ctx context.Context) ([]MappingTemplate, error) {
	rows, err := q.db.Query(ctx, listMappingTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MappingTemplate
	for rows.Next() {
		i, err := scanTemplate(rows)
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

const updateMappingTemplate = `-- name: UpdateMappingTemplate :one
UPDATE mapping_templates
SET name = $2, etag = $3, csv_columns = $4, mapping = $5, updated_at = now()
WHERE id = $1
RETURNING id, name, etag, csv_columns, mapping, created_at, updated_at
`

func (q *Queries) UpdateMappingTemplate(ctx context.Context, arg CreateMappingTemplateParams) (MappingTemplate, error) {
	row := q.db.QueryRow(ctx, updateMappingTemplate,
		arg.ID,
		arg.Name,
		arg.Etag,
		arg.CsvColumns,
		arg.Mapping,
	)
	return scanTemplate(row)
}

const deleteMappingTemplate = `-- name: DeleteMappingTemplate :execrows
DELETE FROM mapping_templates
WHERE id = $1
`

func (q *Queries) DeleteMappingTemplate(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMappingTemplate, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
