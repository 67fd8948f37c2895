package recommend

import (
	"context"
	"fmt"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// FrequentStrategy suggests the user's most purchased items again.
type FrequentStrategy struct {
	catalog outbound.CatalogRepository
}

// NewFrequentStrategy creates the frequent strategy
func NewFrequentStrategy(catalog outbound.CatalogRepository) *FrequentStrategy {
	return &FrequentStrategy{catalog: catalog}
}

// Type implements Strategy
func (s *FrequentStrategy) Type() recommendation.Type { return recommendation.Frequent }

// Generate resolves the whole item frequency table against the catalog and
// truncates afterwards, so delisted favourites do not shorten the result.
// Confidence: min(95, 50 + 10 * purchases).
func (s *FrequentStrategy) Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	if p == nil || len(p.FavoriteItems) == 0 {
		return []recommendation.Recommendation{}, nil
	}

	favorites := p.FavoriteItems
	restaurants := make([]string, 0, len(favorites))
	names := make([]string, 0, len(favorites))
	for _, f := range favorites {
		restaurants = append(restaurants, f.Restaurant)
		names = append(names, f.Name)
	}

	items, err := s.catalog.Find(ctx, food.Query{Restaurants: restaurants, ItemNames: names})
	if err != nil {
		return nil, fmt.Errorf("frequent: %w", err)
	}

	byKey := make(map[string]food.FoodItem, len(items))
	food.SortItems(items, nil)
	for _, item := range items {
		key := itemKey(item.Restaurant, item.Item)
		if _, ok := byKey[key]; !ok {
			byKey[key] = item
		}
	}

	recs := make([]recommendation.Recommendation, 0, len(favorites))
	for _, f := range favorites {
		item, ok := byKey[itemKey(f.Restaurant, f.Name)]
		if !ok {
			continue
		}
		score := 50 + 10*float64(f.Count)
		if score > 95 {
			score = 95
		}
		recs = append(recs, newRecommendation(item, recommendation.Frequent, frequentReason(f.Count), score))
	}
	return truncate(recs, opts.Limit), nil
}

func frequentReason(count int) string {
	if count == 1 {
		return "You've ordered this before"
	}
	return fmt.Sprintf("You've ordered this %d times", count)
}
