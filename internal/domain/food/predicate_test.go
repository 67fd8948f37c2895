package food

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []FoodItem {
	return []FoodItem{
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Restaurant: "Protein Palace", Item: "Grilled Chicken Bowl", Calories: 480, Protein: 42},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Restaurant: "Protein Palace", Item: "Turkey Wrap", Calories: 340, Protein: 28},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Restaurant: "Protein Palace", Item: "Greek Yogurt Cup", Calories: 260, Protein: 18},
		{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000d"), Restaurant: "Burger Barn", Item: "Double Burger", Calories: 640, Protein: 26},
	}
}

func TestPredicate_Matches(t *testing.T) {
	items := sampleItems()

	t.Run("empty predicate matches everything", func(t *testing.T) {
		for _, item := range items {
			assert.True(t, Predicate{}.Matches(item))
		}
	})

	t.Run("range terms are inclusive", func(t *testing.T) {
		p := Predicate{
			NutrientField(Calories): {GTE: Bound(340), LTE: Bound(480)},
		}
		assert.True(t, p.Matches(items[0]))
		assert.True(t, p.Matches(items[1]))
		assert.False(t, p.Matches(items[2]))
		assert.False(t, p.Matches(items[3]))
	})

	t.Run("name matchers are case-insensitive substrings", func(t *testing.T) {
		p := Predicate{
			FieldRestaurant: {Contains: "protein"},
			FieldItemName:   {Contains: "WRAP"},
		}
		assert.False(t, p.Matches(items[0]))
		assert.True(t, p.Matches(items[1]))
		assert.False(t, p.Matches(items[3]))
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		p := Predicate{Field("flavour"): {GTE: Bound(1000)}}
		assert.True(t, p.Matches(items[0]))
	})
}

func TestQuery_Apply(t *testing.T) {
	items := sampleItems()

	t.Run("scoping sorting and limit", func(t *testing.T) {
		q := Query{
			Predicate:   Predicate{NutrientField(Protein): {GTE: Bound(15)}},
			Restaurants: []string{"protein palace"},
			Sort:        []SortKey{{Field: Protein, Desc: true}},
		}

		got := q.Apply(items)

		require.Len(t, got, 3)
		assert.Equal(t, "Grilled Chicken Bowl", got[0].Item)
		assert.Equal(t, "Turkey Wrap", got[1].Item)
		assert.Equal(t, "Greek Yogurt Cup", got[2].Item)
	})

	t.Run("exclusion", func(t *testing.T) {
		q := Query{ExcludeRestaurants: []string{"Protein Palace"}}
		got := q.Apply(items)
		require.Len(t, got, 1)
		assert.Equal(t, "Burger Barn", got[0].Restaurant)
	})

	t.Run("limit truncates after sorting", func(t *testing.T) {
		q := Query{Sort: []SortKey{{Field: Calories}}, Limit: 2}
		got := q.Apply(items)
		require.Len(t, got, 2)
		assert.Equal(t, 260.0, got[0].Calories)
		assert.Equal(t, 340.0, got[1].Calories)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		before := append([]FoodItem(nil), items...)
		Query{Sort: []SortKey{{Field: Protein}}}.Apply(items)
		assert.Equal(t, before, items)
	})
}
