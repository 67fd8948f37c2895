// Package filter compiles normalized constraints into store-neutral catalog
// predicates.
package filter

import "github.com/platewise/engine/internal/domain/food"

// CaloriesPerPriceUnit converts a price bound into its calorie equivalent.
// It is the inverse of food.PricePerCalorie and must stay at 100.
const CaloriesPerPriceUnit = 100

// Compile maps a constraint to a predicate. It is pure and total:
//   - min and max become gte and lte terms on the same field
//   - name matchers become case-insensitive contains terms
//   - price becomes a calories range via the price proxy, unless calories is
//     constrained directly, in which case price is dropped
//
// An empty constraint compiles to an empty predicate, which matches everything.
func Compile(c food.Constraint) food.Predicate {
	p := make(food.Predicate, len(c.Nutrients)+2)

	for _, n := range food.Vocabulary {
		r, ok := c.Nutrients[n]
		if !ok || r.IsEmpty() || !n.IsCatalogAttribute() {
			continue
		}
		p[food.NutrientField(n)] = rangeTerm(r)
	}

	if c.Has(food.Price) && !c.Has(food.Calories) {
		p[food.NutrientField(food.Calories)] = rangeTerm(PriceToCalories(c.Nutrients[food.Price]))
	}

	if c.ItemName != "" {
		p[food.FieldItemName] = food.OperatorSet{Contains: c.ItemName}
	}
	if c.Restaurant != "" {
		p[food.FieldRestaurant] = food.OperatorSet{Contains: c.Restaurant}
	}

	return p
}

// PriceToCalories applies the price proxy to a price range.
func PriceToCalories(r food.Range) food.Range {
	return r.Scale(CaloriesPerPriceUnit)
}

func rangeTerm(r food.Range) food.OperatorSet {
	var ops food.OperatorSet
	if r.Min != nil {
		ops.GTE = food.Bound(*r.Min)
	}
	if r.Max != nil {
		ops.LTE = food.Bound(*r.Max)
	}
	return ops
}
