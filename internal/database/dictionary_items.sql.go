package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const searchDictionaryItems = `-- name: SearchDictionaryItems :many
SELECT id, property_id, alias, color_code
FROM dictionary_items
WHERE cardinality($1::text[]) = 0 OR property_id = ANY($1::text[])
ORDER BY property_id, alias, id
OFFSET $2
LIMIT $3
`

type SearchDictionaryItemsParams struct {
	PropertyIDs []string
	Offset      int32
	Limit       pgtype.Int4
}

func (q *Queries) SearchDictionaryItems(ctx context.Context, arg SearchDictionaryItemsParams) ([]DictionaryItem, error) {
	rows, err := q.db.Query(ctx, searchDictionaryItems, arg.PropertyIDs, arg.Offset, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DictionaryItem
	for rows.Next() {
		var i DictionaryItem
		if err := rows.Scan(&i.ID, &i.PropertyID, &i.Alias, &i.ColorCode); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertDictionaryItem = `-- name: UpsertDictionaryItem :exec
INSERT INTO dictionary_items (id, property_id, alias, color_code)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    property_id = EXCLUDED.property_id,
    alias = EXCLUDED.alias,
    color_code = EXCLUDED.color_code
`

func (q *Queries) UpsertDictionaryItem(ctx context.Context, arg DictionaryItem) error {
	_, err := q.db.Exec(ctx, upsertDictionaryItem, arg.ID, arg.PropertyID, arg.Alias, arg.ColorCode)
	return err
}
