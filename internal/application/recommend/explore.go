package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// ExploreStrategy suggests restaurants the user has never ordered from.
type ExploreStrategy struct {
	catalog outbound.CatalogRepository
	config  Config
}

// NewExploreStrategy creates the explore strategy
func NewExploreStrategy(catalog outbound.CatalogRepository, config Config) *ExploreStrategy {
	return &ExploreStrategy{catalog: catalog, config: config.withDefaults()}
}

// Type implements Strategy
func (s *ExploreStrategy) Type() recommendation.Type { return recommendation.Explore }

// Generate ranks items from new restaurants by closeness to the user's
// average calories, at most ExplorePerRestaurant per restaurant. Cold-start
// users get nothing since there is no baseline to explore from.
// Confidence: 30 + 40 / (1 + |dCalories|/200).
func (s *ExploreStrategy) Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	if p == nil {
		return []recommendation.Recommendation{}, nil
	}

	items, err := s.catalog.Find(ctx, food.Query{ExcludeRestaurants: p.RestaurantNames()})
	if err != nil {
		return nil, fmt.Errorf("explore: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		di := math.Abs(items[i].Calories - p.AvgCalories)
		dj := math.Abs(items[j].Calories - p.AvgCalories)
		if di != dj {
			return di < dj
		}
		return food.TieBreak(items[i], items[j])
	})

	perRestaurant := make(map[string]int)
	recs := make([]recommendation.Recommendation, 0, opts.Limit)
	for _, item := range items {
		if p.OrderedFrom(item.Restaurant) {
			continue
		}
		key := strings.ToLower(item.Restaurant)
		if perRestaurant[key] >= s.config.ExplorePerRestaurant {
			continue
		}
		perRestaurant[key]++

		delta := math.Abs(item.Calories - p.AvgCalories)
		reason := fmt.Sprintf("Try something new from %s", item.Restaurant)
		recs = append(recs, newRecommendation(item, recommendation.Explore, reason, 30+40/(1+delta/200)))
		if opts.Limit > 0 && len(recs) == opts.Limit {
			break
		}
	}
	return recs, nil
}
