package criteria

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/platewise/engine/internal/domain/food"
)

var (
	// ErrNoJSONObject means the response contained no {...} block at all.
	ErrNoJSONObject = errors.New("response contains no JSON object")
	// ErrMalformedJSON means the {...} block did not decode to an object.
	ErrMalformedJSON = errors.New("response JSON object is malformed")
)

// wrapperKeys are single top-level keys some models nest the answer under.
var wrapperKeys = map[string]bool{
	"criteria":    true,
	"constraint":  true,
	"constraints": true,
	"filters":     true,
}

var itemKeys = map[string]bool{
	"item.name": true,
	"item_name": true,
	"itemname":  true,
	"item":      true,
	"name":      true,
}

var restaurantKeys = map[string]bool{
	"company.name":    true,
	"company_name":    true,
	"company":         true,
	"restaurant":      true,
	"restaurant.name": true,
	"restaurant_name": true,
}

// Sanitize repairs an untrusted service response into a Constraint.
//
// The JSON object is cut from the first '{' to the last '}'. Within it only
// vocabulary nutrients shaped as {min?, max?} with finite non-negative
// numeric bounds survive; numeric strings such as "500" or "$8" are accepted.
// Inverted bounds are swapped. Name matchers may be a dotted string key or a
// nested {"name": "..."} object. Anything else is dropped silently.
//
// An error is returned only when no decodable object exists, which callers
// treat as a reason to re-ask.
func Sanitize(response string) (food.Constraint, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return food.NewConstraint(), ErrNoJSONObject
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(response[start : end+1])))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return food.NewConstraint(), ErrMalformedJSON
	}

	if len(raw) == 1 {
		for k, v := range raw {
			if inner, ok := v.(map[string]interface{}); ok && wrapperKeys[strings.ToLower(k)] {
				raw = inner
			}
		}
	}

	return normalize(raw), nil
}

func normalize(raw map[string]interface{}) food.Constraint {
	c := food.NewConstraint()

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := raw[key]
		lower := strings.ToLower(strings.TrimSpace(key))

		switch {
		case itemKeys[lower]:
			if name, ok := matcherName(value); ok {
				c.ItemName = name
			}
		case restaurantKeys[lower]:
			if name, ok := matcherName(value); ok {
				c.Restaurant = name
			}
		default:
			n, ok := food.ParseNutrient(key)
			if !ok {
				continue
			}
			if r, ok := parseRange(value); ok {
				c.Set(n, r)
			}
		}
	}

	return c
}

// matcherName accepts either a plain string or an object with a string
// "name" property.
func matcherName(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case map[string]interface{}:
		name, ok := t["name"].(string)
		if !ok {
			return "", false
		}
		name = strings.TrimSpace(name)
		return name, name != ""
	default:
		return "", false
	}
}

func parseRange(v interface{}) (food.Range, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return food.Range{}, false
	}

	var r food.Range
	for k, bound := range obj {
		f, ok := parseBound(bound)
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "min", "gte", "minimum":
			r.Min = food.Bound(f)
		case "max", "lte", "maximum":
			r.Max = food.Bound(f)
		}
	}

	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r, !r.IsEmpty()
}

func parseBound(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.TrimSpace(strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ "))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}
