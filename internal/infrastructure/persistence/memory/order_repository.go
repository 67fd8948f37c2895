package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/platewise/engine/internal/ports/outbound"
)

// OrderRepository keeps order snapshots in memory, grouped by user
type OrderRepository struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID][]order.Snapshot
}

var _ outbound.OrderHistoryRepository = (*OrderRepository)(nil)

// NewOrderRepository creates an empty order history
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byUser: make(map[uuid.UUID][]order.Snapshot)}
}

// FindByUser returns a copy of the user's orders, oldest first
func (r *OrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]order.Snapshot(nil), r.byUser[userID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.Before(out[j].PlacedAt) })
	return out, nil
}

// Record implements outbound.OrderHistoryRepository
func (r *OrderRepository) Record(ctx context.Context, snapshot order.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	snapshot.Lines = append([]order.LineItem(nil), snapshot.Lines...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[snapshot.UserID] = append(r.byUser[snapshot.UserID], snapshot)
	return nil
}
