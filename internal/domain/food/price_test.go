package food

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePrice(t *testing.T) {
	tests := []struct {
		name     string
		calories float64
		want     float64
	}{
		{"zero calories uses floor", 0, 2.00},
		{"negative calories uses floor", -40, 2.00},
		{"low calories clamp to floor", 50, 2.00},
		{"mid range scales linearly", 500, 5.00},
		{"rounds to cents", 333, 3.33},
		{"high calories clamp to ceiling", 2000, 15.00},
		{"ceiling boundary", 1500, 15.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DerivePrice(tt.calories))
		})
	}
}

func TestPriceOf_NilCalories(t *testing.T) {
	assert.Equal(t, 2.00, PriceOf(nil))
	assert.Equal(t, PriceOf(nil), DerivePrice(0))
	assert.Equal(t, 5.00, PriceOf(Bound(500)))
}

func TestWithPrices(t *testing.T) {
	items := []FoodItem{
		{Restaurant: "Grill", Item: "Steak", Calories: 900},
		{Restaurant: "Grill", Item: "Water"},
	}

	priced := WithPrices(items)

	assert.Len(t, priced, 2)
	assert.Equal(t, 9.00, priced[0].Price)
	assert.Equal(t, "Steak", priced[0].Item)
	assert.Equal(t, 2.00, priced[1].Price)
}
