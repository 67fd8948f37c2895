package gorm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nutrientColumns maps catalog nutrients to food_items columns
var nutrientColumns = map[food.Nutrient]string{
	food.Calories:        "calories",
	food.Protein:         "protein",
	food.TotalFat:        "total_fat",
	food.SaturatedFat:    "saturated_fat",
	food.TransFat:        "trans_fat",
	food.Carbs:           "carbs",
	food.Fiber:           "fiber",
	food.Sugars:          "sugars",
	food.Sodium:          "sodium",
	food.Cholesterol:     "cholesterol",
	food.CaloriesFromFat: "calories_from_fat",
}

// CatalogRepository implements the catalog repository interfaces using GORM
type CatalogRepository struct {
	db *gorm.DB
}

var (
	_ outbound.CatalogRepository = (*CatalogRepository)(nil)
	_ outbound.CatalogWriter     = (*CatalogRepository)(nil)
)

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Find translates the query to SQL and runs it in one round trip
func (r *CatalogRepository) Find(ctx context.Context, q food.Query) ([]food.FoodItem, error) {
	var models []FoodItemModel

	result := ApplyQuery(r.db.WithContext(ctx).Model(&FoodItemModel{}), q).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("find catalog items: %w", result.Error)
	}

	items := make([]food.FoodItem, 0, len(models))
	for i := range models {
		items = append(items, ModelToFoodItem(&models[i]))
	}
	return items, nil
}

// Count returns the number of catalog items
func (r *CatalogRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&FoodItemModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count catalog items: %w", err)
	}
	return total, nil
}

// BulkCreate inserts catalog items in batches
func (r *CatalogRepository) BulkCreate(ctx context.Context, items []food.FoodItem) error {
	if len(items) == 0 {
		return nil
	}
	models := make([]*FoodItemModel, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("catalog item %q: %w", item.Item, err)
		}
		models = append(models, FoodItemToModel(item))
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

// ApplyQuery adds the WHERE, ORDER BY and LIMIT clauses for q. Range terms
// become inclusive comparisons, name matchers become case-insensitive LIKE
// and all terms are ANDed. Fields with no column are ignored.
func ApplyQuery(db *gorm.DB, q food.Query) *gorm.DB {
	fields := make([]food.Field, 0, len(q.Predicate))
	for field := range q.Predicate {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	for _, field := range fields {
		ops := q.Predicate[field]
		switch field {
		case food.FieldItemName:
			db = whereContains(db, "item", ops.Contains)
		case food.FieldRestaurant:
			db = whereContains(db, "restaurant", ops.Contains)
		default:
			n, ok := field.Nutrient()
			if !ok {
				continue
			}
			column := nutrientColumns[n]
			if ops.GTE != nil {
				db = db.Where(clause.Gte{Column: clause.Column{Name: column}, Value: *ops.GTE})
			}
			if ops.LTE != nil {
				db = db.Where(clause.Lte{Column: clause.Column{Name: column}, Value: *ops.LTE})
			}
		}
	}

	if len(q.Restaurants) > 0 {
		db = db.Where("LOWER(restaurant) IN ?", lowerAll(q.Restaurants))
	}
	if len(q.ExcludeRestaurants) > 0 {
		db = db.Where("LOWER(restaurant) NOT IN ?", lowerAll(q.ExcludeRestaurants))
	}
	if len(q.ItemNames) > 0 {
		db = db.Where("LOWER(item) IN ?", lowerAll(q.ItemNames))
	}

	for _, key := range q.Sort {
		column, ok := nutrientColumns[key.Field]
		if !ok {
			continue
		}
		db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: key.Desc})
	}
	db = db.Order("restaurant").Order("item").Order("id")

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

func whereContains(db *gorm.DB, column, substr string) *gorm.DB {
	if substr == "" {
		return db
	}
	return db.Where("LOWER("+column+") LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(substr))+"%")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
