package gorm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/platewise/engine/internal/ports/outbound"
	"gorm.io/gorm"
)

// OrderRepository implements the order history repository interface using GORM
type OrderRepository struct {
	db *gorm.DB
}

var _ outbound.OrderHistoryRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order history repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// FindByUser returns the user's orders, oldest first, with their lines
func (r *OrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Snapshot, error) {
	var models []OrderModel

	result := r.db.WithContext(ctx).
		Preload("Lines").
		Where("user_id = ?", userID).
		Order("placed_at ASC").
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find orders for user %s: %w", userID, result.Error)
	}

	snapshots := make([]order.Snapshot, 0, len(models))
	for i := range models {
		snapshots = append(snapshots, ModelToSnapshot(&models[i]))
	}
	return snapshots, nil
}

// Record stores a new order and its lines in one transaction
func (r *OrderRepository) Record(ctx context.Context, snapshot order.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	model := SnapshotToModel(snapshot)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
}
