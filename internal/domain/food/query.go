package food

import (
	"sort"
	"strings"
)

// SortKey orders results by a catalog nutrient.
type SortKey struct {
	Field Nutrient
	Desc  bool
}

// Query is what catalog stores receive: a compiled predicate plus the
// restaurant and item scoping the recommendation strategies need.
type Query struct {
	Predicate Predicate
	// Restaurants restricts results to these restaurants (exact, case-insensitive).
	Restaurants []string
	// ExcludeRestaurants removes these restaurants (exact, case-insensitive).
	ExcludeRestaurants []string
	// ItemNames restricts results to these item names (exact, case-insensitive).
	ItemNames []string
	Sort      []SortKey
	// Limit of 0 means unlimited.
	Limit int
}

// Matches evaluates the whole query, scoping included, against one item.
func (q Query) Matches(item FoodItem) bool {
	if len(q.Restaurants) > 0 && !inFold(q.Restaurants, item.Restaurant) {
		return false
	}
	if len(q.ExcludeRestaurants) > 0 && inFold(q.ExcludeRestaurants, item.Restaurant) {
		return false
	}
	if len(q.ItemNames) > 0 && !inFold(q.ItemNames, item.Item) {
		return false
	}
	return q.Predicate.Matches(item)
}

// Apply filters, sorts and limits items in memory. Ties fall back to
// restaurant, item name and ID so the output is deterministic.
func (q Query) Apply(items []FoodItem) []FoodItem {
	out := make([]FoodItem, 0, len(items))
	for _, item := range items {
		if q.Matches(item) {
			out = append(out, item)
		}
	}
	SortItems(out, q.Sort)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortItems sorts in place by keys with a deterministic tie-break.
func SortItems(items []FoodItem, keys []SortKey) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			a, _ := items[i].Value(k.Field)
			b, _ := items[j].Value(k.Field)
			if a == b {
				continue
			}
			if k.Desc {
				return a > b
			}
			return a < b
		}
		return TieBreak(items[i], items[j])
	})
}

// TieBreak orders items by restaurant, then name, then ID.
func TieBreak(a, b FoodItem) bool {
	if a.Restaurant != b.Restaurant {
		return a.Restaurant < b.Restaurant
	}
	if a.Item != b.Item {
		return a.Item < b.Item
	}
	return a.ID.String() < b.ID.String()
}

func inFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
