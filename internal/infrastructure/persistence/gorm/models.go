// Package gorm provides GORM model definitions and repositories for the
// catalog and the order history
package gorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FoodItemModel represents the GORM model for catalog items
type FoodItemModel struct {
	ID              uuid.UUID `gorm:"type:char(36);primaryKey"`
	Restaurant      string    `gorm:"type:varchar(255);not null;index"`
	Item            string    `gorm:"type:varchar(255);not null;index"`
	Calories        float64   `gorm:"not null;default:0;index"`
	Protein         float64   `gorm:"not null;default:0;index"`
	TotalFat        float64   `gorm:"not null;default:0"`
	SaturatedFat    float64   `gorm:"not null;default:0"`
	TransFat        float64   `gorm:"not null;default:0"`
	Carbs           float64   `gorm:"not null;default:0"`
	Fiber           float64   `gorm:"not null;default:0"`
	Sugars          float64   `gorm:"not null;default:0"`
	Sodium          float64   `gorm:"not null;default:0"`
	Cholesterol     float64   `gorm:"not null;default:0"`
	CaloriesFromFat float64   `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the default table name
func (FoodItemModel) TableName() string { return "food_items" }

// OrderModel represents the GORM model for placed orders
type OrderModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index"`
	PlacedAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	// Relationships
	Lines []OrderLineModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the default table name
func (OrderModel) TableName() string { return "orders" }

// OrderLineModel is one line of an order as it was at order time
type OrderLineModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	OrderID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Position   int       `gorm:"not null;default:0"`
	Restaurant string    `gorm:"type:varchar(255);not null"`
	Item       string    `gorm:"type:varchar(255);not null"`
	Calories   float64   `gorm:"not null;default:0"`
	Protein    float64   `gorm:"not null;default:0"`
	TotalFat   float64   `gorm:"not null;default:0"`
	Price      float64   `gorm:"not null;default:0"`
	Quantity   int       `gorm:"not null;default:1"`
}

// TableName overrides the default table name
func (OrderLineModel) TableName() string { return "order_lines" }

// AllModels lists every model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&FoodItemModel{},
		&OrderModel{},
		&OrderLineModel{},
	}
}

// BeforeCreate hook for FoodItemModel
func (m *FoodItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for OrderModel
func (m *OrderModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
