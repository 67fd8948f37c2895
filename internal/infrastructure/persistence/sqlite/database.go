// Package sqlite provides SQLite database setup and demo data
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/domain/order"
	"github.com/platewise/engine/internal/infrastructure/persistence/catalogfile"
	gormRepo "github.com/platewise/engine/internal/infrastructure/persistence/gorm"
	"github.com/platewise/engine/internal/ports/outbound"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Demo users seeded with order history
var (
	DemoProteinFan = uuid.MustParse("3b1f8f0e-2c4a-4c1e-9a77-5d2f3c9e8a01")
	DemoLightEater = uuid.MustParse("7c9d2e41-6b3a-4f58-8e12-0a4b5c6d7e02")
)

// SetupDatabase creates and configures the SQLite database
func SetupDatabase(dbPath string, logLevel logger.LogLevel) (*gorm.DB, error) {
	// Use in-memory database if no path provided
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbPath == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(gormRepo.AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// SeedDatabase populates an empty catalog with demo items and demo orders
func SeedDatabase(ctx context.Context, catalog interface {
	outbound.CatalogRepository
	outbound.CatalogWriter
}, orders outbound.OrderHistoryRepository) error {
	count, err := catalog.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // Already seeded
	}

	if err := catalog.BulkCreate(ctx, DemoCatalog()); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	for _, snapshot := range DemoOrders(time.Now()) {
		if err := orders.Record(ctx, snapshot); err != nil {
			return fmt.Errorf("failed to seed orders: %w", err)
		}
	}
	return nil
}

func demoItem(restaurant, name string, calories, protein, fat, satFat, carbs, fiber, sugars, sodium float64) food.FoodItem {
	return food.FoodItem{
		ID:              catalogfile.StableID(restaurant, name),
		Restaurant:      restaurant,
		Item:            name,
		Calories:        calories,
		Protein:         protein,
		TotalFat:        fat,
		SaturatedFat:    satFat,
		Carbs:           carbs,
		Fiber:           fiber,
		Sugars:          sugars,
		Sodium:          sodium,
		CaloriesFromFat: fat * 9,
	}
}

// DemoCatalog returns a small fast-food catalog with stable IDs
func DemoCatalog() []food.FoodItem {
	return []food.FoodItem{
		demoItem("Burger Barn", "Double Cheeseburger", 740, 42, 44, 20, 40, 2, 9, 1380),
		demoItem("Burger Barn", "Classic Burger", 540, 25, 28, 11, 45, 2, 8, 980),
		demoItem("Burger Barn", "Grilled Chicken Sandwich", 420, 36, 12, 3, 42, 3, 7, 1010),
		demoItem("Burger Barn", "Side Salad", 150, 4, 8, 2, 14, 4, 5, 180),
		demoItem("Burger Barn", "Large Fries", 490, 6, 23, 3, 66, 6, 0, 400),
		demoItem("Burger Barn", "Chocolate Shake", 820, 17, 22, 14, 136, 2, 112, 400),
		demoItem("Green Kitchen", "Grilled Chicken Bowl", 480, 42, 14, 3, 44, 7, 5, 890),
		demoItem("Green Kitchen", "Turkey Wrap", 340, 28, 9, 2, 36, 5, 4, 820),
		demoItem("Green Kitchen", "Greek Yogurt Cup", 260, 18, 6, 4, 32, 2, 24, 90),
		demoItem("Green Kitchen", "Kale Caesar Salad", 390, 14, 26, 6, 24, 6, 4, 640),
		demoItem("Green Kitchen", "Salmon Power Bowl", 610, 38, 27, 5, 52, 8, 6, 720),
		demoItem("Taco Town", "Chicken Soft Taco", 190, 12, 7, 3, 18, 1, 1, 500),
		demoItem("Taco Town", "Steak Burrito", 780, 40, 30, 12, 86, 9, 4, 1750),
		demoItem("Taco Town", "Veggie Burrito Bowl", 520, 16, 17, 5, 76, 14, 5, 1190),
		demoItem("Taco Town", "Nachos Supreme", 870, 22, 52, 16, 78, 10, 5, 1280),
		demoItem("Bagel Bros", "Egg and Cheese Bagel", 430, 21, 14, 7, 54, 2, 6, 890),
		demoItem("Bagel Bros", "Turkey Sausage Breakfast Sandwich", 370, 24, 13, 4, 37, 2, 4, 950),
		demoItem("Bagel Bros", "Oatmeal with Berries", 290, 8, 5, 1, 54, 7, 18, 140),
		demoItem("Bagel Bros", "Iced Coffee", 110, 2, 4, 3, 16, 0, 15, 60),
		demoItem("Pizza Place", "Pepperoni Pizza Slice", 620, 26, 30, 12, 60, 3, 6, 1400),
		demoItem("Pizza Place", "Margherita Pizza Slice", 480, 20, 18, 8, 58, 3, 5, 980),
		demoItem("Pizza Place", "Chicken Pesto Wrap", 560, 34, 24, 6, 48, 3, 3, 1100),
		demoItem("Wok Express", "Teriyaki Chicken", 500, 38, 12, 3, 58, 2, 24, 1690),
		demoItem("Wok Express", "Vegetable Fried Rice", 620, 14, 20, 4, 96, 6, 4, 1260),
		demoItem("Wok Express", "Steamed Dumplings", 300, 12, 9, 3, 42, 2, 2, 720),
	}
}

// DemoOrders returns order history for the demo users relative to now
func DemoOrders(now time.Time) []order.Snapshot {
	day := func(daysAgo, hour int) time.Time {
		d := now.AddDate(0, 0, -daysAgo)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 15, 0, 0, time.Local)
	}
	line := func(restaurant, item string, calories, protein, fat float64, qty int) order.LineItem {
		return order.LineItem{
			Restaurant: restaurant,
			Item:       item,
			Calories:   calories,
			Protein:    protein,
			TotalFat:   fat,
			Price:      food.DerivePrice(calories),
			Quantity:   qty,
		}
	}

	return []order.Snapshot{
		{UserID: DemoProteinFan, PlacedAt: day(12, 12), Lines: []order.LineItem{
			line("Burger Barn", "Double Cheeseburger", 740, 42, 44, 1),
			line("Burger Barn", "Grilled Chicken Sandwich", 420, 36, 12, 1),
		}},
		{UserID: DemoProteinFan, PlacedAt: day(9, 13), Lines: []order.LineItem{
			line("Green Kitchen", "Grilled Chicken Bowl", 480, 42, 14, 1),
		}},
		{UserID: DemoProteinFan, PlacedAt: day(5, 19), Lines: []order.LineItem{
			line("Burger Barn", "Double Cheeseburger", 740, 42, 44, 2),
		}},
		{UserID: DemoProteinFan, PlacedAt: day(2, 12), Lines: []order.LineItem{
			line("Green Kitchen", "Grilled Chicken Bowl", 480, 42, 14, 1),
			line("Green Kitchen", "Turkey Wrap", 340, 28, 9, 1),
		}},
		{UserID: DemoLightEater, PlacedAt: day(6, 8), Lines: []order.LineItem{
			line("Bagel Bros", "Oatmeal with Berries", 290, 8, 5, 1),
			line("Bagel Bros", "Iced Coffee", 110, 2, 4, 1),
		}},
		{UserID: DemoLightEater, PlacedAt: day(3, 12), Lines: []order.LineItem{
			line("Green Kitchen", "Greek Yogurt Cup", 260, 18, 6, 1),
		}},
		{UserID: DemoLightEater, PlacedAt: day(1, 9), Lines: []order.LineItem{
			line("Bagel Bros", "Oatmeal with Berries", 290, 8, 5, 1),
		}},
	}
}
