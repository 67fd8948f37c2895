// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CatalogRepository is the read side of the food-item catalog.
// Find applies the predicate, scoping, sort and limit of q in one round trip.
type CatalogRepository interface {
	Find(ctx context.Context, q food.Query) ([]food.FoodItem, error)
	Count(ctx context.Context) (int64, error)
}

// CatalogWriter loads catalog records. Used by seeding, catalog import and tests.
type CatalogWriter interface {
	BulkCreate(ctx context.Context, items []food.FoodItem) error
}

// OrderHistoryRepository defines the interface for past-order lookups
type OrderHistoryRepository interface {
	FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Snapshot, error)
	Record(ctx context.Context, snapshot order.Snapshot) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HealthChecker is implemented by adapters the readiness probe should consult.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}
