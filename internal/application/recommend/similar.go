package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// SimilarStrategy ranks unseen catalog items by nutritional distance from
// the user's averages. Cold-start users get popular items retyped as similar.
type SimilarStrategy struct {
	catalog  outbound.CatalogRepository
	fallback Strategy
	config   Config
}

// NewSimilarStrategy creates the similar strategy
func NewSimilarStrategy(catalog outbound.CatalogRepository, fallback Strategy, config Config) *SimilarStrategy {
	return &SimilarStrategy{catalog: catalog, fallback: fallback, config: config.withDefaults()}
}

// Type implements Strategy
func (s *SimilarStrategy) Type() recommendation.Type { return recommendation.Similar }

// Distance weights protein most, then fat, then calories:
// |dProtein|*2 + |dCalories|/10 + |dFat|.
func Distance(p *profile.UserProfile, item food.FoodItem) float64 {
	return math.Abs(item.Protein-p.AvgProtein)*2 +
		math.Abs(item.Calories-p.AvgCalories)/10 +
		math.Abs(item.TotalFat-p.AvgFat)
}

// Generate implements Strategy. Confidence: 90 / (1 + distance/100).
func (s *SimilarStrategy) Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	if p == nil {
		return s.fromFallback(ctx, opts)
	}

	q := food.Query{}
	if p.AvgCalories > 0 {
		q.Predicate = food.Predicate{
			food.NutrientField(food.Calories): {
				GTE: food.Bound(p.AvgCalories * (1 - s.config.SimilarBand)),
				LTE: food.Bound(p.AvgCalories * (1 + s.config.SimilarBand)),
			},
		}
	}

	items, err := s.catalog.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("similar: %w", err)
	}

	type scored struct {
		item     food.FoodItem
		distance float64
	}
	candidates := make([]scored, 0, len(items))
	for _, item := range items {
		if p.HasOrdered(item.Restaurant, item.Item) {
			continue
		}
		candidates = append(candidates, scored{item: item, distance: Distance(p, item)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return food.TieBreak(candidates[i].item, candidates[j].item)
	})

	recs := make([]recommendation.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		reason := fmt.Sprintf("Close to what you usually order: about %d calories and %dg protein",
			rounded(p.AvgCalories), rounded(p.AvgProtein))
		recs = append(recs, newRecommendation(c.item, recommendation.Similar, reason, 90/(1+c.distance/100)))
		if opts.Limit > 0 && len(recs) == opts.Limit {
			break
		}
	}
	return recs, nil
}

func (s *SimilarStrategy) fromFallback(ctx context.Context, opts Options) ([]recommendation.Recommendation, error) {
	recs, err := s.fallback.Generate(ctx, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("similar: %w", err)
	}
	out := make([]recommendation.Recommendation, 0, len(recs))
	for _, r := range recs {
		r.Type = recommendation.Similar
		r.Reason = "Popular with other diners while we learn your taste: " + r.Reason
		out = append(out, r)
	}
	return out, nil
}
