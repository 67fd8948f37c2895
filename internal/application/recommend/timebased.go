package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"github.com/platewise/engine/internal/ports/outbound"
)

// TimeBasedStrategy suggests items sized for the current meal.
type TimeBasedStrategy struct {
	catalog outbound.CatalogRepository
	config  Config
	now     func() time.Time
}

// NewTimeBasedStrategy creates the time-based strategy. now is consulted
// only when Options carries neither a meal type nor a request time.
func NewTimeBasedStrategy(catalog outbound.CatalogRepository, config Config, now func() time.Time) *TimeBasedStrategy {
	if now == nil {
		now = time.Now
	}
	return &TimeBasedStrategy{catalog: catalog, config: config.withDefaults(), now: now}
}

// Type implements Strategy
func (s *TimeBasedStrategy) Type() recommendation.Type { return recommendation.TimeBased }

// ResolveMealType picks the override if present, else buckets the request time.
func (s *TimeBasedStrategy) ResolveMealType(opts Options) profile.MealType {
	if opts.MealType != nil {
		return *opts.MealType
	}
	if !opts.Now.IsZero() {
		return profile.MealTypeAt(opts.Now)
	}
	return profile.MealTypeAt(s.now())
}

// Generate returns items inside the meal's calorie window. Items from the
// user's favourite restaurants rank first.
// Confidence: 55, +20 for a favourite restaurant, +15 * the share of the
// user's orders placed at this meal.
func (s *TimeBasedStrategy) Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error) {
	meal := s.ResolveMealType(opts)
	window := s.config.MealWindows[meal]

	items, err := s.catalog.Find(ctx, food.Query{
		Predicate: food.Predicate{
			food.NutrientField(food.Calories): {
				GTE: food.Bound(window.MinCalories),
				LTE: food.Bound(window.MaxCalories),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("time-based: %w", err)
	}

	share := 0.0
	if p != nil {
		share = p.MealShare(meal)
	}

	type scored struct {
		item     food.FoodItem
		score    float64
		favorite bool
	}
	candidates := make([]scored, 0, len(items))
	for _, item := range items {
		favorite := p != nil && p.OrderedFrom(item.Restaurant)
		score := 55 + 15*share
		if favorite {
			score += 20
		}
		candidates = append(candidates, scored{item: item, score: score, favorite: favorite})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].item.Protein != candidates[j].item.Protein {
			return candidates[i].item.Protein > candidates[j].item.Protein
		}
		return food.TieBreak(candidates[i].item, candidates[j].item)
	})

	recs := make([]recommendation.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		reason := fmt.Sprintf("A good fit for %s", meal)
		if c.favorite {
			reason = fmt.Sprintf("A good fit for %s from %s, one of your favourites", meal, c.item.Restaurant)
		}
		rec := newRecommendation(c.item, recommendation.TimeBased, reason, c.score)
		m := meal
		rec.MealType = &m
		recs = append(recs, rec)
		if opts.Limit > 0 && len(recs) == opts.Limit {
			break
		}
	}
	return recs, nil
}
