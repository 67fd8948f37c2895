// Package recommend implements the recommendation strategies and the
// aggregator that merges them into one personalized list.
package recommend

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/platewise/engine/internal/application/recommend")

// Strategy generates typed candidates from a profile. A nil profile means a
// cold-start user. Strategies never depend on each other's output.
type Strategy interface {
	Type() recommendation.Type
	Generate(ctx context.Context, p *profile.UserProfile, opts Options) ([]recommendation.Recommendation, error)
}

// Options for one strategy call
type Options struct {
	Limit int
	// MealType overrides the time-of-day bucket for the time-based strategy.
	MealType *profile.MealType
	// Now is the request time used to infer the meal type.
	Now time.Time
}

// Window is an inclusive calorie range.
type Window struct {
	MinCalories float64 `mapstructure:"min_calories"`
	MaxCalories float64 `mapstructure:"max_calories"`
}

// Config holds strategy constants and list limits.
type Config struct {
	DefaultLimit int
	MaxLimit     int

	// SimilarBand is the fraction around the average calories that bounds
	// the similar candidate pool.
	SimilarBand float64
	// ExplorePerRestaurant caps explore items from a single restaurant.
	ExplorePerRestaurant int
	// HealthyMinSavings is the smallest calorie reduction worth suggesting.
	HealthyMinSavings float64
	// HealthyFrequentItems is how many favourite items get alternatives.
	HealthyFrequentItems int
	PopularMinProtein    float64
	PopularMaxCalories   float64

	MealWindows map[profile.MealType]Window
}

// DefaultConfig returns the production constants
func DefaultConfig() Config {
	return Config{
		DefaultLimit:         8,
		MaxLimit:             20,
		SimilarBand:          0.35,
		ExplorePerRestaurant: 2,
		HealthyMinSavings:    100,
		HealthyFrequentItems: 5,
		PopularMinProtein:    15,
		PopularMaxCalories:   800,
		MealWindows: map[profile.MealType]Window{
			profile.Breakfast: {MinCalories: 200, MaxCalories: 550},
			profile.Lunch:     {MinCalories: 350, MaxCalories: 800},
			profile.Dinner:    {MinCalories: 450, MaxCalories: 1000},
			profile.LateNight: {MinCalories: 150, MaxCalories: 650},
		},
	}
}

// NormalizeLimit applies the default and the hard cap.
func (c Config) NormalizeLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultLimit
	}
	if limit > c.MaxLimit {
		return c.MaxLimit
	}
	return limit
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = d.MaxLimit
	}
	if c.SimilarBand <= 0 {
		c.SimilarBand = d.SimilarBand
	}
	if c.ExplorePerRestaurant <= 0 {
		c.ExplorePerRestaurant = d.ExplorePerRestaurant
	}
	if c.HealthyMinSavings <= 0 {
		c.HealthyMinSavings = d.HealthyMinSavings
	}
	if c.HealthyFrequentItems <= 0 {
		c.HealthyFrequentItems = d.HealthyFrequentItems
	}
	if c.PopularMinProtein <= 0 {
		c.PopularMinProtein = d.PopularMinProtein
	}
	if c.PopularMaxCalories <= 0 {
		c.PopularMaxCalories = d.PopularMaxCalories
	}
	if len(c.MealWindows) == 0 {
		c.MealWindows = d.MealWindows
	}
	return c
}

func newRecommendation(item food.FoodItem, t recommendation.Type, reason string, score float64) recommendation.Recommendation {
	return recommendation.Recommendation{
		Item:       food.WithPrice(item),
		Type:       t,
		Reason:     reason,
		Confidence: recommendation.ClampConfidence(score),
	}
}

func itemKey(restaurant, item string) string {
	return strings.ToLower(restaurant) + "\x00" + strings.ToLower(item)
}

func truncate(recs []recommendation.Recommendation, limit int) []recommendation.Recommendation {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

func rounded(v float64) int {
	return int(math.Round(v))
}
