// Package admin provides administrative operations on the catalog store:
// seeding reference data from a fixture file and wiping imported data.
package admin

import (
	"context"
	"fmt"
	"time"
)

// ResetTimeout is the maximum duration for reset operations.
const ResetTimeout = 30 * time.Second

// Resetter deletes imported catalog data.
type Resetter interface {
	ResetCatalogData(ctx context.Context) error
}

// Reset removes every imported product, category, price, inventory record
// and dictionary item. Catalogs, stores, fulfillment centers and mapping
// templates survive.
// This is a destructive operation - use with caution.
func Reset(ctx context.Context, r Resetter) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	if err := r.ResetCatalogData(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
