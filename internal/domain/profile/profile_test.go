package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealTypeAt(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2024, 3, 14, hour, 30, 0, 0, time.Local)
	}

	tests := []struct {
		hour int
		want MealType
	}{
		{0, LateNight},
		{4, LateNight},
		{5, Breakfast},
		{10, Breakfast},
		{11, Lunch},
		{14, Lunch},
		{15, Dinner},
		{20, Dinner},
		{21, LateNight},
		{23, LateNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MealTypeAt(at(tt.hour)), "hour %d", tt.hour)
	}
}

func TestParseMealType(t *testing.T) {
	m, err := ParseMealType("Late_Night")
	require.NoError(t, err)
	assert.Equal(t, LateNight, m)

	_, err = ParseMealType("brunch")
	assert.Error(t, err)
}

func TestThresholds_Classify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name                   string
		calories, protein, fat float64
		want                   DietaryPreference
	}{
		{"protein at cutoff", 700, 30, 35, HighProtein},
		{"high protein wins over low fat", 300, 45, 5, HighProtein},
		{"low fat moderate protein", 600, 20, 12, Balanced},
		{"fat at cutoff still balanced", 600, 15, 20, Balanced},
		{"low protein light meals", 350, 8, 10, LightEater},
		{"fatty light meals", 450, 20, 25, LightEater},
		{"everything else", 900, 20, 40, Standard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.Classify(tt.calories, tt.protein, tt.fat))
		})
	}
}

func TestUserProfile_Lookups(t *testing.T) {
	p := &UserProfile{
		TotalOrders:         4,
		FavoriteRestaurants: []Frequency{{Name: "Burger Barn", Count: 3}, {Name: "Salad Stop", Count: 1}},
		FavoriteItems:       []Frequency{{Name: "Double Burger", Restaurant: "Burger Barn", Count: 3}},
		MealTypes:           map[MealType]int{Lunch: 3, Dinner: 1},
	}

	assert.True(t, p.OrderedFrom("burger barn"))
	assert.False(t, p.OrderedFrom("Taco Town"))
	assert.True(t, p.HasOrdered("Burger Barn", "double burger"))
	assert.False(t, p.HasOrdered("Salad Stop", "Double Burger"))
	assert.Equal(t, []string{"Burger Barn", "Salad Stop"}, p.RestaurantNames())
	assert.InDelta(t, 0.75, p.MealShare(Lunch), 1e-9)
	assert.Zero(t, p.MealShare(Breakfast))
}
