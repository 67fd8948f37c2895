package recommend

import (
	"context"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/profile"
	"github.com/platewise/engine/internal/domain/recommendation"
)

type fakeCatalog struct {
	items []food.FoodItem
	err   error
}

func (c *fakeCatalog) Find(_ context.Context, q food.Query) ([]food.FoodItem, error) {
	if c.err != nil {
		return nil, c.err
	}
	return q.Apply(c.items), nil
}

func (c *fakeCatalog) Count(context.Context) (int64, error) {
	return int64(len(c.items)), c.err
}

func item(restaurant, name string, calories, protein, fat float64) food.FoodItem {
	return food.FoodItem{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(restaurant+"/"+name)),
		Restaurant: restaurant,
		Item:       name,
		Calories:   calories,
		Protein:    protein,
		TotalFat:   fat,
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{items: []food.FoodItem{
		item("Burger Barn", "Double Burger", 640, 26, 35),
		item("Burger Barn", "Classic Burger", 540, 24, 28),
		item("Burger Barn", "Veggie Burger", 420, 18, 14),
		item("Burger Barn", "Side Salad", 150, 3, 8),
		item("Salad Stop", "Chicken Caesar", 470, 36, 22),
		item("Salad Stop", "Garden Salad", 220, 6, 9),
		item("Salad Stop", "Cobb Salad", 430, 32, 18),
		item("Taco Town", "Fish Taco", 250, 10, 9),
		item("Taco Town", "Steak Burrito", 780, 40, 30),
		item("Taco Town", "Chicken Bowl", 520, 38, 15),
		item("Bagel Bros", "Egg Bagel", 400, 16, 12),
		item("Bagel Bros", "Breakfast Sandwich", 350, 19, 14),
		item("Bagel Bros", "Fruit Cup", 90, 1, 0),
		item("Pizza Place", "Pepperoni Pizza", 900, 35, 40),
		item("Pizza Place", "Margherita Pizza", 700, 28, 24),
	}}
}

// burgerFan ordered Double Burger three times and Cobb Salad once.
func burgerFan() *profile.UserProfile {
	return &profile.UserProfile{
		UserID:      uuid.MustParse("6f1c2a53-7a8e-4d7e-9d55-1f0c2b9a4e11"),
		TotalOrders: 4,
		TotalItems:  4,
		FavoriteRestaurants: []profile.Frequency{
			{Name: "Burger Barn", Count: 3},
			{Name: "Salad Stop", Count: 1},
		},
		FavoriteItems: []profile.Frequency{
			{Name: "Double Burger", Restaurant: "Burger Barn", Count: 3, Calories: 640, Protein: 26},
			{Name: "Cobb Salad", Restaurant: "Salad Stop", Count: 1, Calories: 430, Protein: 32},
		},
		AvgCalories:       587.5,
		AvgProtein:        27.5,
		AvgFat:            30.75,
		AvgPrice:          5.88,
		DietaryPreference: profile.Standard,
		MealTypes:         map[profile.MealType]int{profile.Lunch: 3, profile.Dinner: 1},
	}
}

func itemNames(recs []recommendation.Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Item.Item)
	}
	return out
}
