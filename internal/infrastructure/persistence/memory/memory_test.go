package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/platewise/engine/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepository(t *testing.T) {
	cache := NewCacheRepository(0)
	defer cache.Close()
	ctx := context.Background()
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)

	value := []byte(`{"protein":{"min":20}}`)
	require.NoError(t, cache.Set(ctx, "criteria:abc", value, time.Minute))
	value[0] = 'X'

	got, err := cache.Get(ctx, "criteria:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"protein":{"min":20}}`, string(got), "stored bytes are copied")

	exists, err := cache.Exists(ctx, "criteria:abc")
	require.NoError(t, err)
	assert.True(t, exists)

	current = current.Add(2 * time.Minute)
	_, err = cache.Get(ctx, "criteria:abc")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheRepository_Sweep(t *testing.T) {
	cache := NewCacheRepository(0)
	ctx := context.Background()
	current := time.Now()
	cache.now = func() time.Time { return current }

	require.NoError(t, cache.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, cache.Set(ctx, "default", []byte("2"), 0))
	current = current.Add(time.Hour)
	cache.Sweep()

	assert.Equal(t, 1, cache.Len())
	require.NoError(t, cache.Delete(ctx, "default"))
	assert.Equal(t, 0, cache.Len())
	cache.Close()
	cache.Close()
}

func TestCatalogRepository(t *testing.T) {
	catalog := NewCatalogRepository(
		food.FoodItem{ID: uuid.New(), Restaurant: "Green Kitchen", Item: "Turkey Wrap", Calories: 340, Protein: 28},
		food.FoodItem{ID: uuid.New(), Restaurant: "Burger Barn", Item: "Double Burger", Calories: 640, Protein: 26},
	)
	ctx := context.Background()

	items, err := catalog.Find(ctx, food.Query{Predicate: food.Predicate{
		food.NutrientField(food.Calories): {LTE: food.Bound(500)},
	}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Turkey Wrap", items[0].Item)

	assert.Error(t, catalog.BulkCreate(ctx, []food.FoodItem{{Item: "No Restaurant"}}))

	n, err := catalog.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = catalog.Find(cancelled, food.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderRepository(t *testing.T) {
	orders := NewOrderRepository()
	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, orders.Record(ctx, order.Snapshot{UserID: userID, PlacedAt: base.Add(time.Hour),
		Lines: []order.LineItem{{Restaurant: "Burger Barn", Item: "Double Burger"}}}))
	require.NoError(t, orders.Record(ctx, order.Snapshot{UserID: userID, PlacedAt: base,
		Lines: []order.LineItem{{Restaurant: "Green Kitchen", Item: "Turkey Wrap"}}}))
	assert.ErrorIs(t, orders.Record(ctx, order.Snapshot{UserID: userID}), order.ErrEmptyOrder)

	snapshots, err := orders.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.Equal(t, "Turkey Wrap", snapshots[0].Lines[0].Item)
	assert.NotEqual(t, uuid.Nil, snapshots[0].ID)

	none, err := orders.FindByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
