package food

import "strings"

// Nutrient is one key of the closed nutritional vocabulary a Constraint may carry.
type Nutrient string

const (
	Calories        Nutrient = "calories"
	Protein         Nutrient = "protein"
	TotalFat        Nutrient = "totalFat"
	SaturatedFat    Nutrient = "saturatedFat"
	TransFat        Nutrient = "transFat"
	Carbs           Nutrient = "carbs"
	Fiber           Nutrient = "fiber"
	Sugars          Nutrient = "sugars"
	Sodium          Nutrient = "sodium"
	Cholesterol     Nutrient = "cholesterol"
	CaloriesFromFat Nutrient = "caloriesFromFat"

	// Price is not a catalog attribute. It is compiled into a calorie proxy.
	Price Nutrient = "price"
)

// Vocabulary lists every recognised nutrient key in a stable order.
var Vocabulary = []Nutrient{
	Calories,
	Protein,
	TotalFat,
	SaturatedFat,
	TransFat,
	Carbs,
	Fiber,
	Sugars,
	Sodium,
	Cholesterol,
	CaloriesFromFat,
	Price,
}

var nutrientAliases = map[string]Nutrient{
	"fat":               TotalFat,
	"total_fat":         TotalFat,
	"carbohydrates":     Carbs,
	"carbohydrate":      Carbs,
	"sugar":             Sugars,
	"sat_fat":           SaturatedFat,
	"saturated_fat":     SaturatedFat,
	"trans_fat":         TransFat,
	"calories_from_fat": CaloriesFromFat,
	"calorie":           Calories,
	"kcal":              Calories,
	"cost":              Price,
}

var canonicalNutrients = func() map[string]Nutrient {
	m := make(map[string]Nutrient, len(Vocabulary))
	for _, n := range Vocabulary {
		m[strings.ToLower(string(n))] = n
	}
	return m
}()

// ParseNutrient resolves a key to a vocabulary nutrient. Canonical keys match
// case-insensitively; a small alias table covers common spellings.
func ParseNutrient(key string) (Nutrient, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if n, ok := canonicalNutrients[k]; ok {
		return n, true
	}
	n, ok := nutrientAliases[k]
	return n, ok
}

// IsCatalogAttribute reports whether the nutrient is stored on catalog items.
func (n Nutrient) IsCatalogAttribute() bool {
	return n != Price && n.IsValid()
}

// IsValid reports whether n belongs to the vocabulary.
func (n Nutrient) IsValid() bool {
	c, ok := canonicalNutrients[strings.ToLower(string(n))]
	return ok && c == n
}

func (n Nutrient) String() string {
	return string(n)
}
