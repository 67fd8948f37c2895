package testutils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/stretchr/testify/mock"
)

// MockCatalogRepository is a mock implementation of outbound.CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) Find(ctx context.Context, q food.Query) ([]food.FoodItem, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]food.FoodItem), args.Error(1)
}

func (m *MockCatalogRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderHistoryRepository is a mock implementation of outbound.OrderHistoryRepository
type MockOrderHistoryRepository struct {
	mock.Mock
}

func (m *MockOrderHistoryRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]order.Snapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Snapshot), args.Error(1)
}

func (m *MockOrderHistoryRepository) Record(ctx context.Context, snapshot order.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

// MockTextCompleter is a mock implementation of outbound.NamedCompleter
type MockTextCompleter struct {
	mock.Mock
}

func (m *MockTextCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockTextCompleter) Provider() string { return "mock" }

func (m *MockTextCompleter) Model() string { return "mock-model" }

// MockCacheRepository is a mock implementation of outbound.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
