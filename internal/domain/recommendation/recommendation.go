// Package recommendation defines the typed, explained output of the
// recommendation strategies.
package recommendation

import (
	"fmt"
	"math"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
)

// Type names the strategy that produced a recommendation.
type Type string

const (
	Frequent   Type = "frequent"
	Similar    Type = "similar"
	Explore    Type = "explore"
	TimeBased  Type = "time-based"
	HealthyAlt Type = "healthy-alt"
	Popular    Type = "popular"
)

// Priority is the order strategies are consumed in when merging. Earlier
// types win duplicates.
var Priority = []Type{Frequent, Similar, TimeBased, HealthyAlt, Explore, Popular}

// ParseType resolves a strategy name.
func ParseType(s string) (Type, error) {
	for _, t := range Priority {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown recommendation type %q", s)
}

// Recommendation is one suggested item with its explanation.
type Recommendation struct {
	Item          food.PricedItem   `json:"item"`
	Type          Type              `json:"type"`
	Reason        string            `json:"reason"`
	Confidence    int               `json:"confidence"`
	CaloriesSaved *float64          `json:"caloriesSaved,omitempty"`
	MealType      *profile.MealType `json:"mealType,omitempty"`
}

// ClampConfidence rounds a score into the integer range 0-100.
func ClampConfidence(score float64) int {
	switch {
	case math.IsNaN(score) || score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return int(math.Round(score))
	}
}

// Personalized is the merged response for one user.
type Personalized struct {
	Success         bool                 `json:"success"`
	IsNewUser       bool                 `json:"isNewUser"`
	Recommendations []Recommendation     `json:"recommendations"`
	UserProfile     *profile.UserProfile `json:"userProfile,omitempty"`
}
