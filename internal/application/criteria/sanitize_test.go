package criteria

import (
	"testing"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     func(c *food.Constraint)
	}{
		{
			name:     "clean object",
			response: `{"protein":{"min":20},"calories":{"max":600}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Protein, food.Range{Min: food.Bound(20)})
				c.Set(food.Calories, food.Range{Max: food.Bound(600)})
			},
		},
		{
			name:     "prose and code fences around the object",
			response: "Sure! Here you go:\n```json\n{\"price\": {\"max\": 8}}\n```\nEnjoy.",
			want: func(c *food.Constraint) {
				c.Set(food.Price, food.Range{Max: food.Bound(8)})
			},
		},
		{
			name:     "empty object",
			response: `{}`,
			want:     func(c *food.Constraint) {},
		},
		{
			name:     "unknown keys dropped",
			response: `{"flavour":{"min":3},"mood":"happy","protein":{"min":25}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Protein, food.Range{Min: food.Bound(25)})
			},
		},
		{
			name:     "numeric strings accepted",
			response: `{"price":{"max":"$12"},"calories":{"min":"300 kcal"}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Price, food.Range{Max: food.Bound(12)})
				c.Set(food.Calories, food.Range{Min: food.Bound(300)})
			},
		},
		{
			name:     "non-numeric negative and nested bounds dropped",
			response: `{"protein":{"min":"lots"},"fiber":{"min":-4},"sodium":{"max":{"value":3}},"sugars":{"max":10}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Sugars, food.Range{Max: food.Bound(10)})
			},
		},
		{
			name:     "bare numbers are not ranges",
			response: `{"calories":500}`,
			want:     func(c *food.Constraint) {},
		},
		{
			name:     "inverted bounds swapped",
			response: `{"calories":{"min":800,"max":300}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Calories, food.Range{Min: food.Bound(300), Max: food.Bound(800)})
			},
		},
		{
			name:     "aliases resolved",
			response: `{"fat":{"max":15},"carbohydrates":{"max":40}}`,
			want: func(c *food.Constraint) {
				c.Set(food.TotalFat, food.Range{Max: food.Bound(15)})
				c.Set(food.Carbs, food.Range{Max: food.Bound(40)})
			},
		},
		{
			name:     "dotted name matchers",
			response: `{"item.name":" burger ","company.name":"Barn"}`,
			want: func(c *food.Constraint) {
				c.ItemName = "burger"
				c.Restaurant = "Barn"
			},
		},
		{
			name:     "nested name matchers",
			response: `{"item":{"name":"salad"},"company":{"name":"Green Leaf"}}`,
			want: func(c *food.Constraint) {
				c.ItemName = "salad"
				c.Restaurant = "Green Leaf"
			},
		},
		{
			name:     "matcher without a name string is ignored",
			response: `{"item":{"title":"salad"},"company":{"name":42}}`,
			want:     func(c *food.Constraint) {},
		},
		{
			name:     "wrapper key unwrapped",
			response: `{"criteria":{"protein":{"min":30}}}`,
			want: func(c *food.Constraint) {
				c.Set(food.Protein, food.Range{Min: food.Bound(30)})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := food.NewConstraint()
			tt.want(&want)

			got, err := Sanitize(tt.response)

			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSanitize_Unparseable(t *testing.T) {
	_, err := Sanitize("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = Sanitize("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = Sanitize(`{"protein": {"min": 20,}`)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}
