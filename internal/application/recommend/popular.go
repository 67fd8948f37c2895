package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// PopularStrategy is the catalog-wide fallback. It ignores the profile.
type PopularStrategy struct {
	catalog outbound.CatalogRepository
	config  Config
}

// NewPopularStrategy creates the popular strategy
func NewPopularStrategy(catalog outbound.CatalogRepository, config Config) *PopularStrategy {
	return &PopularStrategy{catalog: catalog, config: config.withDefaults()}
}

// Type implements Strategy
func (s *PopularStrategy) Type() recommendation.Type { return recommendation.Popular }

// Generate returns items with protein >= 15 and calories <= 800, highest
// protein first and lowest calories among equals.
// Confidence: 50 + min(40, protein - 15).
func (s *PopularStrategy) Generate(ctx context.Context, _ *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	items, err := s.catalog.Find(ctx, food.Query{
		Predicate: food.Predicate{
			food.NutrientField(food.Protein):  {GTE: food.Bound(s.config.PopularMinProtein)},
			food.NutrientField(food.Calories): {LTE: food.Bound(s.config.PopularMaxCalories)},
		},
		Sort: []food.SortKey{
			{Field: food.Protein, Desc: true},
			{Field: food.Calories},
		},
		Limit: opts.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("popular: %w", err)
	}

	recs := make([]recommendation.Recommendation, 0, len(items))
	for _, item := range items {
		score := 50 + math.Min(40, item.Protein-s.config.PopularMinProtein)
		reason := fmt.Sprintf("Popular high-protein pick: %dg protein, %d calories", rounded(item.Protein), rounded(item.Calories))
		recs = append(recs, newRecommendation(item, recommendation.Popular, reason, score))
	}
	return truncate(recs, opts.Limit), nil
}
