// Package local provides a rule-based TextCompleter that needs no network.
// It understands common phrasings ("under 600 calories", "at least 30g
// protein", "under $8", "high protein") and answers in the same JSON shape
// a hosted model is asked for.
package local

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/platewise/engine/internal/domain/food"
	"github.com/platewise/engine/internal/ports/outbound"
)

var (
	// "under 600 calories", "at least 30g protein", "less than 20 g of fat"
	nutrientBound = regexp.MustCompile(`\b(under|below|less than|at most|no more than|max(?:imum)?|over|above|more than|at least|min(?:imum)?)\s*(\d+(?:\.\d+)?)\s*(?:g|mg|grams?|kcal)?\s*(?:of\s+)?(calories|calorie|cals?|kcal|protein|fat|carbs|carbohydrates|sugars?|sodium|fiber|cholesterol)\b`)
	// "600 calories or less", "30g protein or more"
	trailingBound = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:g|mg|grams?|kcal)?\s*(?:of\s+)?(calories|calorie|cals?|kcal|protein|fat|carbs|carbohydrates|sugars?|sodium|fiber|cholesterol)\s+or\s+(less|fewer|more|higher)\b`)
	// "30g+ protein", "40g protein"
	proteinAmount = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*g\s*\+?\s*(?:of\s+)?protein\b`)
	// "under $8", "at least $10"
	priceBound = regexp.MustCompile(`\b(under|below|less than|at most|no more than|max(?:imum)?|over|above|more than|at least|min(?:imum)?)\s*\$\s*(\d+(?:\.\d+)?)`)
	// "$8 or less"
	trailingPrice = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)\s+or\s+(less|cheaper|more)\b`)
	fromRestaurant = regexp.MustCompile(`\bfrom\s+([a-z][a-z'&]*(?:\s+[a-z][a-z'&]*){0,2})`)
)

var upperWords = map[string]bool{
	"under": true, "below": true, "less than": true, "at most": true, "no more than": true,
	"max": true, "maximum": true,
}

type phrase struct {
	words    []string
	nutrient food.Nutrient
	min, max *float64
}

var phrases = []phrase{
	{words: []string{"high protein", "high-protein", "protein packed", "protein-packed", "lots of protein"}, nutrient: food.Protein, min: food.Bound(20)},
	{words: []string{"low calorie", "low-calorie", "low cal", "light meal", "something light"}, nutrient: food.Calories, max: food.Bound(500)},
	{words: []string{"low fat", "low-fat"}, nutrient: food.TotalFat, max: food.Bound(15)},
	{words: []string{"low sodium", "low-sodium", "low salt"}, nutrient: food.Sodium, max: food.Bound(600)},
	{words: []string{"low sugar", "low-sugar"}, nutrient: food.Sugars, max: food.Bound(10)},
	{words: []string{"low carb", "low-carb"}, nutrient: food.Carbs, max: food.Bound(30)},
	{words: []string{"high fiber", "high-fiber", "high fibre"}, nutrient: food.Fiber, min: food.Bound(5)},
}

// itemWords maps a request word to the item-name matcher it implies
var itemWords = []struct{ word, match string }{
	{"burgers", "burger"}, {"burger", "burger"},
	{"salads", "salad"}, {"salad", "salad"},
	{"pizzas", "pizza"}, {"pizza", "pizza"},
	{"sandwiches", "sandwich"}, {"sandwich", "sandwich"},
	{"wraps", "wrap"}, {"wrap", "wrap"},
	{"tacos", "taco"}, {"taco", "taco"},
	{"burritos", "burrito"}, {"burrito", "burrito"},
	{"bowls", "bowl"}, {"bowl", "bowl"},
	{"fries", "fries"},
	{"coffee", "coffee"},
	{"shakes", "shake"}, {"shake", "shake"},
	{"bagels", "bagel"}, {"bagel", "bagel"},
	{"dumplings", "dumpling"},
	{"chicken", "chicken"},
	{"salmon", "salmon"},
	{"steak", "steak"},
}

// mealWords mark a request as food-related without naming a dish
var mealWords = []string{
	"food", "eat", "meal", "meals", "menu", "order", "dish", "dishes",
	"breakfast", "lunch", "dinner", "snack", "snacks", "drink", "drinks",
}

var restaurantStop = map[string]bool{
	"under": true, "below": true, "over": true, "above": true, "with": true, "that": true,
	"and": true, "for": true, "less": true, "more": true, "at": true, "than": true,
	"which": true, "please": true, "only": true, "in": true, "near": true,
}

// Completer is a deterministic outbound.NamedCompleter
type Completer struct{}

var _ outbound.NamedCompleter = Completer{}

// New returns a local completer
func New() Completer { return Completer{} }

// Provider implements outbound.NamedCompleter
func (Completer) Provider() string { return "local" }

// Model implements outbound.NamedCompleter
func (Completer) Model() string { return "rules-v1" }

// Complete extracts the request from the prompt and answers with a JSON
// constraint object, "{}" when nothing is recognised
func (Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := Parse(requestText(prompt))
	out, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// requestText returns the text between the last "<<<" and ">>>" markers,
// or the whole prompt when they are absent
func requestText(prompt string) string {
	start := strings.LastIndex(prompt, "<<<")
	if start < 0 {
		return prompt
	}
	rest := prompt[start+3:]
	if end := strings.Index(rest, ">>>"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// Parse turns free text into a constraint using fixed phrase rules
func Parse(text string) food.Constraint {
	t := strings.ToLower(strings.Join(strings.Fields(text), " "))
	c := food.NewConstraint()

	for _, m := range nutrientBound.FindAllStringSubmatch(t, -1) {
		setBound(&c, nutrientOf(m[3]), m[2], upperWords[m[1]])
	}
	for _, m := range trailingBound.FindAllStringSubmatch(t, -1) {
		setBound(&c, nutrientOf(m[2]), m[1], m[3] == "less" || m[3] == "fewer")
	}
	for _, m := range proteinAmount.FindAllStringSubmatch(t, -1) {
		if !c.Has(food.Protein) {
			setBound(&c, food.Protein, m[1], false)
		}
	}
	for _, m := range priceBound.FindAllStringSubmatch(t, -1) {
		setBound(&c, food.Price, m[2], upperWords[m[1]])
	}
	for _, m := range trailingPrice.FindAllStringSubmatch(t, -1) {
		setBound(&c, food.Price, m[1], m[2] != "more")
	}

	for _, p := range phrases {
		if c.Has(p.nutrient) || !containsAny(t, p.words) {
			continue
		}
		c.Set(p.nutrient, food.Range{Min: p.min, Max: p.max})
	}

	// "from X" only names a restaurant in a request that is already about
	// food; "a joke from your grandma" is not.
	if m := fromRestaurant.FindStringSubmatch(t); m != nil {
		if name := restaurantName(m[1]); name != "" {
			rest := strings.Replace(t, name, "", 1)
			if !c.IsEmpty() || itemMatch(rest) != "" || containsAnyWord(rest, mealWords) {
				c.Restaurant = name
				t = rest
			}
		}
	}

	c.ItemName = itemMatch(t)
	return c
}

func itemMatch(text string) string {
	for _, w := range itemWords {
		if containsWord(text, w.word) {
			return w.match
		}
	}
	return ""
}

func containsAnyWord(text string, words []string) bool {
	for _, w := range words {
		if containsWord(text, w) {
			return true
		}
	}
	return false
}

func setBound(c *food.Constraint, n food.Nutrient, raw string, upper bool) {
	if n == "" {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return
	}
	r := c.Nutrients[n]
	if upper {
		r.Max = food.Bound(v)
	} else {
		r.Min = food.Bound(v)
	}
	c.Set(n, r)
}

func nutrientOf(word string) food.Nutrient {
	switch word {
	case "cal", "cals":
		return food.Calories
	}
	n, ok := food.ParseNutrient(word)
	if !ok {
		return ""
	}
	return n
}

func restaurantName(words string) string {
	var kept []string
	for _, w := range strings.Fields(words) {
		if restaurantStop[w] {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
