//go:build performance

// Package performance benchmarks the query and recommendation hot paths
package performance

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/application/criteria"
	"github.com/platewise/engine/internal/application/filter"
	"github.com/platewise/engine/internal/application/profile"
	"github.com/platewise/engine/internal/application/recommend"
	"github.com/platewise/engine/internal/domain/food"
	domain "github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/infrastructure/persistence/memory"
	"github.com/platewise/engine/test/testutils"
	"github.com/stretchr/testify/require"
)

const (
	SmallDataset  = 100
	MediumDataset = 1000
	LargeDataset  = 10000

	MaxRecommendationTime = 100 * time.Millisecond
	MaxMemoryIncreaseMB   = 100
)

var sizes = []int{SmallDataset, MediumDataset, LargeDataset}

func searchConstraint() food.Constraint {
	c := food.NewConstraint()
	c.Set(food.Protein, food.Range{Min: food.Bound(20)})
	c.Set(food.Price, food.Range{Max: food.Bound(6)})
	c.Restaurant = "kitchen"
	return c
}

func BenchmarkCompile(b *testing.B) {
	c := searchConstraint()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = filter.Compile(c)
	}
}

func BenchmarkSanitize(b *testing.B) {
	response := `Here you go: {"criteria":{"protein":{"min":"25"},"calories":{"max":600},"company.name":"Taco Town","unknown":1}}`
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := criteria.Sanitize(response); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCatalogFind(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("items=%d", size), func(b *testing.B) {
			catalog := memory.NewCatalogRepository(testutils.NewFoodFactory(1).Catalog(size)...)
			q := food.Query{
				Predicate: filter.Compile(searchConstraint()),
				Sort:      []food.SortKey{{Field: food.Protein, Desc: true}},
				Limit:     20,
			}
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := catalog.Find(ctx, q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkProfileBuild(b *testing.B) {
	factory := testutils.NewFoodFactory(2)
	catalog := factory.Catalog(200)
	userID := uuid.New()
	history := factory.History(userID, time.Now(), catalog, 365)
	thresholds := domain.DefaultThresholds()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = profile.Build(userID, history, thresholds)
	}
}

func BenchmarkAggregate(b *testing.B) {
	for _, size := range sizes {
		b.Run(fmt.Sprintf("items=%d", size), func(b *testing.B) {
			factory := testutils.NewFoodFactory(3)
			items := factory.Catalog(size)
			userID := uuid.New()
			p := profile.Build(userID, factory.History(userID, time.Now(), items, 30), domain.DefaultThresholds())
			agg := recommend.NewDefaultAggregator(memory.NewCatalogRepository(items...), recommend.DefaultConfig(), nil)
			ctx := context.Background()
			opts := recommend.Options{Limit: 20, Now: time.Now()}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := agg.Aggregate(ctx, p, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// TestAggregateLatencyAndMemory checks one full recommendation pass over the
// large catalog stays within budget
func TestAggregateLatencyAndMemory(t *testing.T) {
	factory := testutils.NewFoodFactory(4)
	items := factory.Catalog(LargeDataset)
	userID := uuid.New()
	p := profile.Build(userID, factory.History(userID, time.Now(), items, 60), domain.DefaultThresholds())
	require.NotNil(t, p)
	agg := recommend.NewDefaultAggregator(memory.NewCatalogRepository(items...), recommend.DefaultConfig(), nil)

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)

	start := time.Now()
	recs, err := agg.Aggregate(context.Background(), p, recommend.Options{Limit: 20, Now: time.Now()})
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	runtime.ReadMemStats(&after)
	increaseMB := float64(after.TotalAlloc-before.TotalAlloc) / 1024 / 1024

	t.Logf("aggregate over %d items: %v, %.1f MB allocated", LargeDataset, elapsed, increaseMB)
	require.Less(t, elapsed, MaxRecommendationTime)
	require.Less(t, increaseMB, float64(MaxMemoryIncreaseMB))
}
