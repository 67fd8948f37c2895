package memory

import (
	"context"
	"sync"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/outbound"
)

// CatalogRepository keeps catalog items in memory and evaluates queries
// with food.Query.Apply
type CatalogRepository struct {
	mu    sync.RWMutex
	items []food.FoodItem
}

var (
	_ outbound.CatalogRepository = (*CatalogRepository)(nil)
	_ outbound.CatalogWriter     = (*CatalogRepository)(nil)
)

// NewCatalogRepository creates a catalog holding a copy of items
func NewCatalogRepository(items ...food.FoodItem) *CatalogRepository {
	return &CatalogRepository{items: append([]food.FoodItem(nil), items...)}
}

// Find implements outbound.CatalogRepository
func (r *CatalogRepository) Find(ctx context.Context, q food.Query) ([]food.FoodItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return q.Apply(r.items), nil
}

// Count implements outbound.CatalogRepository
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

// BulkCreate implements outbound.CatalogWriter
func (r *CatalogRepository) BulkCreate(ctx context.Context, items []food.FoodItem) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, items...)
	return nil
}
