// Package profile describes the derived, per-request summary of a user's
// order history.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MealType is a time-of-day bucket.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	LateNight MealType = "late-night"
)

// MealTypes lists the buckets in day order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner, LateNight}

// MealTypeAt buckets a timestamp by its hour on the server clock:
// breakfast 5-11, lunch 11-15, dinner 15-21, late-night 21-5.
func MealTypeAt(t time.Time) MealType {
	h := t.Local().Hour()
	switch {
	case h >= 5 && h < 11:
		return Breakfast
	case h >= 11 && h < 15:
		return Lunch
	case h >= 15 && h < 21:
		return Dinner
	default:
		return LateNight
	}
}

// ParseMealType accepts the canonical names plus "latenight" and "late_night".
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return Breakfast, nil
	case "lunch":
		return Lunch, nil
	case "dinner":
		return Dinner, nil
	case "late-night", "latenight", "late_night":
		return LateNight, nil
	default:
		return "", fmt.Errorf("unknown meal type %q", s)
	}
}

// DietaryPreference is the single label assigned to a profile.
type DietaryPreference string

const (
	HighProtein DietaryPreference = "high-protein"
	Balanced    DietaryPreference = "balanced"
	LightEater  DietaryPreference = "light-eater"
	Standard    DietaryPreference = "standard"
)

// Thresholds are the fixed cutoffs of the dietary classification.
type Thresholds struct {
	HighProteinMin     float64 `mapstructure:"high_protein_min"`
	BalancedFatMax     float64 `mapstructure:"balanced_fat_max"`
	BalancedProteinMin float64 `mapstructure:"balanced_protein_min"`
	LightCaloriesMax   float64 `mapstructure:"light_calories_max"`
}

// DefaultThresholds returns the production cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighProteinMin:     30,
		BalancedFatMax:     20,
		BalancedProteinMin: 15,
		LightCaloriesMax:   500,
	}
}

// Classify applies the rules in order: high-protein, balanced, light-eater,
// standard.
func (t Thresholds) Classify(avgCalories, avgProtein, avgFat float64) DietaryPreference {
	switch {
	case avgProtein >= t.HighProteinMin:
		return HighProtein
	case avgFat <= t.BalancedFatMax && avgProtein >= t.BalancedProteinMin:
		return Balanced
	case avgCalories < t.LightCaloriesMax:
		return LightEater
	default:
		return Standard
	}
}

// Frequency counts units purchased of a restaurant or an item.
type Frequency struct {
	Name       string  `json:"name"`
	Restaurant string  `json:"restaurant,omitempty"`
	Count      int     `json:"count"`
	Calories   float64 `json:"calories,omitempty"`
	Protein    float64 `json:"protein,omitempty"`
}

// UserProfile is recomputed on every request and never persisted.
type UserProfile struct {
	UserID              uuid.UUID         `json:"userId"`
	TotalOrders         int               `json:"totalOrders"`
	TotalItems          int               `json:"totalItems"`
	FavoriteRestaurants []Frequency       `json:"favoriteRestaurants"`
	FavoriteItems       []Frequency       `json:"favoriteItems"`
	AvgCalories         float64           `json:"avgCalories"`
	AvgProtein          float64           `json:"avgProtein"`
	AvgFat              float64           `json:"avgFat"`
	AvgPrice            float64           `json:"avgPrice"`
	DietaryPreference   DietaryPreference `json:"dietaryPreference"`
	MealTypes           map[MealType]int  `json:"mealTypes"`
	LastOrderAt         time.Time         `json:"lastOrderAt"`
}

// OrderedFrom reports whether the user has ever ordered from restaurant.
func (p *UserProfile) OrderedFrom(restaurant string) bool {
	for _, f := range p.FavoriteRestaurants {
		if strings.EqualFold(f.Name, restaurant) {
			return true
		}
	}
	return false
}

// HasOrdered reports whether the user has ordered this exact item.
func (p *UserProfile) HasOrdered(restaurant, item string) bool {
	for _, f := range p.FavoriteItems {
		if strings.EqualFold(f.Restaurant, restaurant) && strings.EqualFold(f.Name, item) {
			return true
		}
	}
	return false
}

// RestaurantNames returns the restaurants in frequency order.
func (p *UserProfile) RestaurantNames() []string {
	names := make([]string, 0, len(p.FavoriteRestaurants))
	for _, f := range p.FavoriteRestaurants {
		names = append(names, f.Name)
	}
	return names
}

// MealShare is the fraction of orders placed in the given bucket.
func (p *UserProfile) MealShare(m MealType) float64 {
	if p.TotalOrders == 0 {
		return 0
	}
	return float64(p.MealTypes[m]) / float64(p.TotalOrders)
}
