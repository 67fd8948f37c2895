package gorm

import (
	"sort"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
)

// FoodItemToModel converts a catalog item to a GORM model
func FoodItemToModel(item food.FoodItem) *FoodItemModel {
	return &FoodItemModel{
		ID:              item.ID,
		Restaurant:      item.Restaurant,
		Item:            item.Item,
		Calories:        item.Calories,
		Protein:         item.Protein,
		TotalFat:        item.TotalFat,
		SaturatedFat:    item.SaturatedFat,
		TransFat:        item.TransFat,
		Carbs:           item.Carbs,
		Fiber:           item.Fiber,
		Sugars:          item.Sugars,
		Sodium:          item.Sodium,
		Cholesterol:     item.Cholesterol,
		CaloriesFromFat: item.CaloriesFromFat,
	}
}

// ModelToFoodItem converts a GORM model to a catalog item
func ModelToFoodItem(m *FoodItemModel) food.FoodItem {
	return food.FoodItem{
		ID:              m.ID,
		Restaurant:      m.Restaurant,
		Item:            m.Item,
		Calories:        m.Calories,
		Protein:         m.Protein,
		TotalFat:        m.TotalFat,
		SaturatedFat:    m.SaturatedFat,
		TransFat:        m.TransFat,
		Carbs:           m.Carbs,
		Fiber:           m.Fiber,
		Sugars:          m.Sugars,
		Sodium:          m.Sodium,
		Cholesterol:     m.Cholesterol,
		CaloriesFromFat: m.CaloriesFromFat,
	}
}

// SnapshotToModel converts an order snapshot to a GORM model with its lines
func SnapshotToModel(s order.Snapshot) *OrderModel {
	model := &OrderModel{
		ID:       s.ID,
		UserID:   s.UserID,
		PlacedAt: s.PlacedAt,
		Lines:    make([]OrderLineModel, 0, len(s.Lines)),
	}
	for i, l := range s.Lines {
		model.Lines = append(model.Lines, OrderLineModel{
			OrderID:    s.ID,
			Position:   i,
			Restaurant: l.Restaurant,
			Item:       l.Item,
			Calories:   l.Calories,
			Protein:    l.Protein,
			TotalFat:   l.TotalFat,
			Price:      l.Price,
			Quantity:   l.Quantity,
		})
	}
	return model
}

// ModelToSnapshot converts a GORM order model to a snapshot, keeping line order
func ModelToSnapshot(m *OrderModel) order.Snapshot {
	lines := append([]OrderLineModel(nil), m.Lines...)
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Position < lines[j].Position })

	s := order.Snapshot{
		ID:       m.ID,
		UserID:   m.UserID,
		PlacedAt: m.PlacedAt,
		Lines:    make([]order.LineItem, 0, len(lines)),
	}
	for _, l := range lines {
		s.Lines = append(s.Lines, order.LineItem{
			Restaurant: l.Restaurant,
			Item:       l.Item,
			Calories:   l.Calories,
			Protein:    l.Protein,
			TotalFat:   l.TotalFat,
			Price:      l.Price,
			Quantity:   l.Quantity,
		})
	}
	return s
}
