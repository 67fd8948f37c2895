package food

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Wire keys of the two free-text matchers.
const (
	ItemNameKey   = "item.name"
	RestaurantKey = "company.name"
)

// Range is an optional inclusive interval.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsEmpty reports whether neither bound is set.
func (r Range) IsEmpty() bool {
	return r.Min == nil && r.Max == nil
}

// Scale multiplies both bounds by factor.
func (r Range) Scale(factor float64) Range {
	var out Range
	if r.Min != nil {
		v := *r.Min * factor
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max * factor
		out.Max = &v
	}
	return out
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%g-%g", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf(">= %g", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("<= %g", *r.Max)
	default:
		return "any"
	}
}

// Bound is a helper for building ranges in code.
func Bound(v float64) *float64 {
	return &v
}

// Constraint is the normalized nutritional and price intent of a query.
// Only vocabulary nutrients and the two name matchers can be represented.
type Constraint struct {
	Nutrients  map[Nutrient]Range
	ItemName   string
	Restaurant string
}

// NewConstraint returns an empty constraint ready for use.
func NewConstraint() Constraint {
	return Constraint{Nutrients: make(map[Nutrient]Range)}
}

// IsEmpty reports whether the constraint carries no actionable criteria.
func (c Constraint) IsEmpty() bool {
	if c.ItemName != "" || c.Restaurant != "" {
		return false
	}
	for _, r := range c.Nutrients {
		if !r.IsEmpty() {
			return false
		}
	}
	return true
}

// Has reports whether a non-empty range is set for n.
func (c Constraint) Has(n Nutrient) bool {
	r, ok := c.Nutrients[n]
	return ok && !r.IsEmpty()
}

// Set stores a range for n, ignoring empty ranges and non-vocabulary keys.
func (c *Constraint) Set(n Nutrient, r Range) {
	if r.IsEmpty() || !n.IsValid() {
		return
	}
	if c.Nutrients == nil {
		c.Nutrients = make(map[Nutrient]Range)
	}
	c.Nutrients[n] = r
}

// Clone returns a deep copy.
func (c Constraint) Clone() Constraint {
	out := Constraint{
		Nutrients:  make(map[Nutrient]Range, len(c.Nutrients)),
		ItemName:   c.ItemName,
		Restaurant: c.Restaurant,
	}
	for n, r := range c.Nutrients {
		var cp Range
		if r.Min != nil {
			cp.Min = Bound(*r.Min)
		}
		if r.Max != nil {
			cp.Max = Bound(*r.Max)
		}
		out.Nutrients[n] = cp
	}
	return out
}

// Keys returns the set nutrient keys in vocabulary order.
func (c Constraint) Keys() []Nutrient {
	keys := make([]Nutrient, 0, len(c.Nutrients))
	for _, n := range Vocabulary {
		if c.Has(n) {
			keys = append(keys, n)
		}
	}
	return keys
}

// Summary renders the constraint for humans, e.g. "protein >= 20, calories <= 500".
func (c Constraint) Summary() string {
	if c.IsEmpty() {
		return "no criteria"
	}
	parts := make([]string, 0, len(c.Nutrients)+2)
	for _, n := range c.Keys() {
		parts = append(parts, fmt.Sprintf("%s %s", n, c.Nutrients[n]))
	}
	if c.ItemName != "" {
		parts = append(parts, fmt.Sprintf("item matching %q", c.ItemName))
	}
	if c.Restaurant != "" {
		parts = append(parts, fmt.Sprintf("restaurant matching %q", c.Restaurant))
	}
	return strings.Join(parts, ", ")
}

// MarshalJSON encodes the constraint in its wire shape:
// {"protein":{"min":20},"item.name":"burger"}.
func (c Constraint) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Nutrients)+2)
	for n, r := range c.Nutrients {
		if r.IsEmpty() {
			continue
		}
		m[string(n)] = r
	}
	if c.ItemName != "" {
		m[ItemNameKey] = c.ItemName
	}
	if c.Restaurant != "" {
		m[RestaurantKey] = c.Restaurant
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire shape strictly. Unknown keys are dropped.
// Lenient repair of untrusted input lives in the criteria extractor.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := NewConstraint()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case ItemNameKey:
			if err := json.Unmarshal(raw[k], &out.ItemName); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
		case RestaurantKey:
			if err := json.Unmarshal(raw[k], &out.Restaurant); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
		default:
			n, ok := ParseNutrient(k)
			if !ok {
				continue
			}
			var r Range
			if err := json.Unmarshal(raw[k], &r); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			out.Set(n, r)
		}
	}
	*c = out
	return nil
}
