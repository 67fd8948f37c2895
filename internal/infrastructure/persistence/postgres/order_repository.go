package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/platewise/engine/internal/ports/outbound"
	"go.uber.org/zap"
)

const findOrdersByUser = `
SELECT o.id, o.user_id, o.placed_at,
       l.restaurant, l.item, l.calories, l.protein, l.total_fat, l.price, l.quantity
FROM orders o
JOIN order_lines l ON l.order_id = o.id
WHERE o.user_id = $1
ORDER BY o.placed_at, o.id, l.position`

// OrderRepository reads and records order history with pgx
type OrderRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

var _ outbound.OrderHistoryRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new order history repository
func NewOrderRepository(db *pgxpool.Pool, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger.Named("order-history"),
	}
}

// FindByUser returns the user's orders oldest first, lines in their original order
func (r *OrderRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Snapshot, error) {
	rows, err := r.db.Query(ctx, findOrdersByUser, userID)
	if err != nil {
		r.logger.Error("Failed to query orders", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var snapshots []order.Snapshot
	for rows.Next() {
		var (
			id, user uuid.UUID
			s        order.Snapshot
			l        order.LineItem
		)
		if err := rows.Scan(&id, &user, &s.PlacedAt,
			&l.Restaurant, &l.Item, &l.Calories, &l.Protein, &l.TotalFat, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if n := len(snapshots); n == 0 || snapshots[n-1].ID != id {
			s.ID, s.UserID = id, user
			snapshots = append(snapshots, s)
		}
		last := &snapshots[len(snapshots)-1]
		last.Lines = append(last.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return snapshots, nil
}

// Record stores one order and its lines in a single transaction
func (r *OrderRepository) Record(ctx context.Context, snapshot order.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, placed_at, created_at) VALUES ($1, $2, $3, now())`,
			snapshot.ID, snapshot.UserID, snapshot.PlacedAt); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for i, l := range snapshot.Lines {
			batch.Queue(`INSERT INTO order_lines
				(order_id, position, restaurant, item, calories, protein, total_fat, price, quantity)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				snapshot.ID, i, l.Restaurant, l.Item, l.Calories, l.Protein, l.TotalFat, l.Price, l.Quantity)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
}
