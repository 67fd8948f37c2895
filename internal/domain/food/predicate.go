package food

import "strings"

// Field is a predicate target: a catalog nutrient or one of the name fields.
type Field string

const (
	FieldItemName   Field = ItemNameKey
	FieldRestaurant Field = RestaurantKey
)

// NutrientField returns the predicate field for a catalog nutrient.
func NutrientField(n Nutrient) Field {
	return Field(n)
}

// Nutrient returns the nutrient a field targets, if any.
func (f Field) Nutrient() (Nutrient, bool) {
	n := Nutrient(f)
	if !n.IsCatalogAttribute() {
		return "", false
	}
	return n, true
}

// OperatorSet holds the operators applied to one field. Bounds are inclusive.
// Contains is a case-insensitive substring match on name fields.
type OperatorSet struct {
	GTE      *float64 `json:"gte,omitempty"`
	LTE      *float64 `json:"lte,omitempty"`
	Contains string   `json:"contains,omitempty"`
}

// Predicate maps fields to operator sets, ANDed together. It carries no
// store-specific syntax; each catalog adapter translates it. An empty
// predicate matches everything.
type Predicate map[Field]OperatorSet

// Matches evaluates the predicate against an item in memory.
func (p Predicate) Matches(item FoodItem) bool {
	for field, ops := range p {
		switch field {
		case FieldItemName:
			if !containsFold(item.Item, ops.Contains) {
				return false
			}
		case FieldRestaurant:
			if !containsFold(item.Restaurant, ops.Contains) {
				return false
			}
		default:
			n, ok := field.Nutrient()
			if !ok {
				continue
			}
			v, _ := item.Value(n)
			if ops.GTE != nil && v < *ops.GTE {
				return false
			}
			if ops.LTE != nil && v > *ops.LTE {
				return false
			}
		}
	}
	return true
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
