package food

import "math"

const (
	// MinPrice is charged for items with no calorie data.
	MinPrice = 2.00
	// MaxPrice caps the derived price.
	MaxPrice = 15.00
	// PricePerCalorie is the fixed business factor between calories and price.
	PricePerCalorie = 0.01
)

// DerivePrice computes an item's price from its calories:
// clamp(calories * 0.01, 2.00, 15.00), rounded to cents. Absent or
// non-positive calories yield MinPrice.
func DerivePrice(calories float64) float64 {
	if calories <= 0 || math.IsNaN(calories) {
		return MinPrice
	}
	price := calories * PricePerCalorie
	if price < MinPrice {
		price = MinPrice
	}
	if price > MaxPrice {
		price = MaxPrice
	}
	return math.Round(price*100) / 100
}

// PriceOf is DerivePrice for an optional calorie value.
func PriceOf(calories *float64) float64 {
	if calories == nil {
		return MinPrice
	}
	return DerivePrice(*calories)
}

// PricedItem is a catalog item with its derived price. It is the only shape
// handed to callers.
type PricedItem struct {
	FoodItem
	Price float64 `json:"price"`
}

// WithPrice attaches the derived price to a catalog item.
func WithPrice(item FoodItem) PricedItem {
	return PricedItem{FoodItem: item, Price: DerivePrice(item.Calories)}
}

// WithPrices attaches derived prices to a slice of catalog items.
func WithPrices(items []FoodItem) []PricedItem {
	out := make([]PricedItem, 0, len(items))
	for _, item := range items {
		out = append(out, WithPrice(item))
	}
	return out
}
