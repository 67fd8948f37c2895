package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// categoryKeywords groups items across restaurants. The first keyword found
// in an item name is its category.
var categoryKeywords = []string{
	"burger", "salad", "chicken", "pizza", "sandwich", "wrap", "taco",
	"burrito", "bowl", "fries", "coffee", "shake", "breakfast",
}

// Category returns the keyword category of an item name, or "".
func Category(itemName string) string {
	lower := strings.ToLower(itemName)
	for _, k := range categoryKeywords {
		if strings.Contains(lower, k) {
			return k
		}
	}
	return ""
}

// HealthyAltStrategy looks for lighter versions of the user's favourites.
type HealthyAltStrategy struct {
	catalog outbound.CatalogRepository
	config  Config
}

// NewHealthyAltStrategy creates the healthy-alternative strategy
func NewHealthyAltStrategy(catalog outbound.CatalogRepository, config Config) *HealthyAltStrategy {
	return &HealthyAltStrategy{catalog: catalog, config: config.withDefaults()}
}

// Type implements Strategy
func (s *HealthyAltStrategy) Type() recommendation.Type { return recommendation.HealthyAlt }

// Generate searches, for each top favourite, the same restaurant first and
// then the same category for an item saving at least HealthyMinSavings
// calories, preferring the highest protein. An empty list is not an error.
// Confidence: 50 + min(45, saved/10).
func (s *HealthyAltStrategy) Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	recs := []recommendation.Recommendation{}
	if p == nil {
		return recs, nil
	}

	favorites := p.FavoriteItems
	if len(favorites) > s.config.HealthyFrequentItems {
		favorites = favorites[:s.config.HealthyFrequentItems]
	}

	used := make(map[uuid.UUID]bool)
	for _, fav := range favorites {
		if fav.Calories <= s.config.HealthyMinSavings {
			continue
		}

		alt, found, err := s.findAlternative(ctx, fav, used)
		if err != nil {
			return nil, fmt.Errorf("healthy-alt: %w", err)
		}
		if !found {
			continue
		}
		used[alt.ID] = true

		saved := fav.Calories - alt.Calories
		score := 50 + math.Min(45, saved/10)
		reason := fmt.Sprintf("Saves %d calories compared to your usual %s", rounded(saved), fav.Name)
		rec := newRecommendation(alt, recommendation.HealthyAlt, reason, score)
		rec.CaloriesSaved = &saved
		recs = append(recs, rec)

		if opts.Limit > 0 && len(recs) == opts.Limit {
			break
		}
	}
	return recs, nil
}

func (s *HealthyAltStrategy) findAlternative(ctx context.Context, fav profile.Frequency, used map[uuid.UUID]bool) (food.FoodItem, bool, error) {
	ceiling := fav.Calories - s.config.HealthyMinSavings
	lighter := food.OperatorSet{GTE: food.Bound(1), LTE: food.Bound(ceiling)}

	sameRestaurant, err := s.catalog.Find(ctx, food.Query{
		Predicate:   food.Predicate{food.NutrientField(food.Calories): lighter},
		Restaurants: []string{fav.Restaurant},
	})
	if err != nil {
		return food.FoodItem{}, false, err
	}
	if alt, ok := bestAlternative(sameRestaurant, fav, used); ok {
		return alt, true, nil
	}

	category := Category(fav.Name)
	if category == "" {
		return food.FoodItem{}, false, nil
	}
	sameCategory, err := s.catalog.Find(ctx, food.Query{
		Predicate: food.Predicate{
			food.NutrientField(food.Calories): lighter,
			food.FieldItemName:                {Contains: category},
		},
	})
	if err != nil {
		return food.FoodItem{}, false, err
	}
	alt, ok := bestAlternative(sameCategory, fav, used)
	return alt, ok, nil
}

// bestAlternative picks the highest-protein candidate, then the lightest.
func bestAlternative(items []food.FoodItem, fav profile.Frequency, used map[uuid.UUID]bool) (food.FoodItem, bool) {
	candidates := make([]food.FoodItem, 0, len(items))
	for _, item := range items {
		if used[item.ID] {
			continue
		}
		if strings.EqualFold(item.Restaurant, fav.Restaurant) && strings.EqualFold(item.Item, fav.Name) {
			continue
		}
		candidates = append(candidates, item)
	}
	if len(candidates) == 0 {
		return food.FoodItem{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Protein != candidates[j].Protein {
			return candidates[i].Protein > candidates[j].Protein
		}
		if candidates[i].Calories != candidates[j].Calories {
			return candidates[i].Calories < candidates[j].Calories
		}
		return food.TieBreak(candidates[i], candidates[j])
	})
	return candidates[0], true
}
