// Package food holds the catalog model and the normalized constraint and
// predicate types the search pipeline works with.
package food

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMissingRestaurant = errors.New("food item must have a restaurant")
	ErrMissingItemName   = errors.New("food item must have a name")
	ErrNegativeNutrient  = errors.New("nutrient values cannot be negative")
)

// FoodItem is an immutable catalog record. A zero nutrient value means the
// value is absent from the catalog. Price is never stored, see DerivePrice.
type FoodItem struct {
	ID              uuid.UUID `json:"id"`
	Restaurant      string    `json:"restaurant"`
	Item            string    `json:"item"`
	Calories        float64   `json:"calories"`
	Protein         float64   `json:"protein"`
	TotalFat        float64   `json:"totalFat"`
	SaturatedFat    float64   `json:"saturatedFat"`
	TransFat        float64   `json:"transFat"`
	Carbs           float64   `json:"carbs"`
	Fiber           float64   `json:"fiber"`
	Sugars          float64   `json:"sugars"`
	Sodium          float64   `json:"sodium"`
	Cholesterol     float64   `json:"cholesterol"`
	CaloriesFromFat float64   `json:"caloriesFromFat"`
}

// Value reads a catalog nutrient. It returns false for Price and for keys
// outside the vocabulary.
func (f FoodItem) Value(n Nutrient) (float64, bool) {
	switch n {
	case Calories:
		return f.Calories, true
	case Protein:
		return f.Protein, true
	case TotalFat:
		return f.TotalFat, true
	case SaturatedFat:
		return f.SaturatedFat, true
	case TransFat:
		return f.TransFat, true
	case Carbs:
		return f.Carbs, true
	case Fiber:
		return f.Fiber, true
	case Sugars:
		return f.Sugars, true
	case Sodium:
		return f.Sodium, true
	case Cholesterol:
		return f.Cholesterol, true
	case CaloriesFromFat:
		return f.CaloriesFromFat, true
	default:
		return 0, false
	}
}

// Validate checks the record before it is written to a catalog store.
func (f FoodItem) Validate() error {
	if f.Restaurant == "" {
		return ErrMissingRestaurant
	}
	if f.Item == "" {
		return ErrMissingItemName
	}
	for _, n := range Vocabulary {
		if v, ok := f.Value(n); ok && v < 0 {
			return ErrNegativeNutrient
		}
	}
	return nil
}
