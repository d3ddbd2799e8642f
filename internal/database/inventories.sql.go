package database

import (
	"context"
)

const getInventoriesByProductIDs = `-- name: GetInventoriesByProductIDs :many
SELECT product_id, fulfillment_center_id, in_stock_quantity, reserved_quantity,
    allow_backorder, allow_preorder, backorder_availability_date,
    backorder_quantity, preorder_quantity, in_transit
FROM inventories
WHERE product_id = ANY($1::text[])
ORDER BY product_id, fulfillment_center_id
`

func (q *Queries) GetInventoriesByProductIDs(ctx context.Context, productIDs []string) ([]Inventory, error) {
	rows, err := q.db.Query(ctx, getInventoriesByProductIDs, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Inventory
	for rows.Next() {
		var i Inventory
		if err := rows.Scan(
			&i.ProductID,
			&i.FulfillmentCenterID,
			&i.InStockQuantity,
			&i.ReservedQuantity,
			&i.AllowBackorder,
			&i.AllowPreorder,
			&i.BackorderAvailabilityDate,
			&i.BackorderQuantity,
			&i.PreorderQuantity,
			&i.InTransit,
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

const upsertInventory = `-- name: UpsertInventory :exec
INSERT INTO inventories (product_id, fulfillment_center_id, in_stock_quantity, reserved_quantity,
    allow_backorder, allow_preorder, backorder_availability_date,
    backorder_quantity, preorder_quantity, in_transit)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (product_id, fulfillment_center_id) DO UPDATE SET
    in_stock_quantity = EXCLUDED.in_stock_quantity,
    reserved_quantity = EXCLUDED.reserved_quantity,
    allow_backorder = EXCLUDED.allow_backorder,
    allow_preorder = EXCLUDED.allow_preorder,
    backorder_availability_date = EXCLUDED.backorder_availability_date,
    backorder_quantity = EXCLUDED.backorder_quantity,
    preorder_quantity = EXCLUDED.preorder_quantity,
    in_transit = EXCLUDED.in_transit
`

func (q *Queries) UpsertInventory(ctx context.Context, arg Inventory) error {
	_, err := q.db.Exec(ctx, upsertInventory,
		arg.ProductID,
		arg.FulfillmentCenterID,
		arg.InStockQuantity,
		arg.ReservedQuantity,
		arg.AllowBackorder,
		arg.AllowPreorder,
		arg.BackorderAvailabilityDate,
		arg.BackorderQuantity,
		arg.PreorderQuantity,
		arg.InTransit,
	)
	return err
}
