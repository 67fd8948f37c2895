// Package testutils provides test data factories and infrastructure setup
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
)

var restaurants = []string{"Burger Barn", "Green Kitchen", "Taco Town", "Bagel Bros", "Pizza Place", "Wok Express"}

var dishes = []string{"Burger", "Wrap", "Bowl", "Salad", "Burrito", "Taco", "Sandwich", "Pizza Slice", "Fried Rice", "Bagel"}

// FoodFactory generates catalog items and orders from a seeded faker
type FoodFactory struct {
	faker *gofakeit.Faker
}

// NewFoodFactory creates a new food factory with seeded faker
func NewFoodFactory(seed int64) *FoodFactory {
	return &FoodFactory{faker: gofakeit.New(seed)}
}

// FoodItem returns a plausible catalog item
func (f *FoodFactory) FoodItem() food.FoodItem {
	calories := float64(f.faker.Number(100, 1200))
	fat := f.faker.Float64Range(2, calories/18)
	return food.FoodItem{
		ID:              uuid.New(),
		Restaurant:      restaurants[f.faker.Number(0, len(restaurants)-1)],
		Item:            fmt.Sprintf("%s %s", f.faker.AdjectiveDescriptive(), dishes[f.faker.Number(0, len(dishes)-1)]),
		Calories:        calories,
		Protein:         float64(f.faker.Number(2, 60)),
		TotalFat:        round1(fat),
		SaturatedFat:    round1(fat / 3),
		Carbs:           float64(f.faker.Number(5, 120)),
		Fiber:           float64(f.faker.Number(0, 15)),
		Sugars:          float64(f.faker.Number(0, 60)),
		Sodium:          float64(f.faker.Number(50, 2200)),
		CaloriesFromFat: round1(fat * 9),
	}
}

// Catalog returns n generated items
func (f *FoodFactory) Catalog(n int) []food.FoodItem {
	items := make([]food.FoodItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, f.FoodItem())
	}
	return items
}

// Order builds a snapshot for user from items picked out of catalog
func (f *FoodFactory) Order(userID uuid.UUID, placedAt time.Time, catalog []food.FoodItem, lines int) order.Snapshot {
	s := order.Snapshot{UserID: userID, PlacedAt: placedAt}
	for i := 0; i < lines; i++ {
		item := catalog[f.faker.Number(0, len(catalog)-1)]
		s.Lines = append(s.Lines, LineFor(item, f.faker.Number(1, 3)))
	}
	return s
}

// History builds count orders, one per day, ending yesterday
func (f *FoodFactory) History(userID uuid.UUID, now time.Time, catalog []food.FoodItem, count int) []order.Snapshot {
	out := make([]order.Snapshot, 0, count)
	for i := 0; i < count; i++ {
		day := now.AddDate(0, 0, -(count - i))
		placed := time.Date(day.Year(), day.Month(), day.Day(), f.faker.Number(7, 22), 0, 0, 0, now.Location())
		out = append(out, f.Order(userID, placed, catalog, f.faker.Number(1, 3)))
	}
	return out
}

// LineFor copies the nutrition of item into an order line
func LineFor(item food.FoodItem, quantity int) order.LineItem {
	return order.LineItem{
		Restaurant: item.Restaurant,
		Item:       item.Item,
		Calories:   item.Calories,
		Protein:    item.Protein,
		TotalFat:   item.TotalFat,
		Price:      food.DerivePrice(item.Calories),
		Quantity:   quantity,
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
