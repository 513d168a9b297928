// Package normalize turns a decoded payload into a model-ready feature
// vector: pick the instance, sanitize, backfill aggregates, enforce types
// and validate.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/matchpred/internal/domain/feature"
)

// numericPattern is the whole accepted numeric grammar: optional minus,
// digits, optional fraction. No exponent, no separators, no plus sign.
var numericPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// isNullText reports whether s (already trimmed) spells a null.
func isNullText(s string) bool {
	return s == "" || strings.EqualFold(s, "null")
}

// Coerce applies light scalar coercion: text is trimmed, blank or "null"
// becomes Null, numeric text becomes Int or Float. Everything else passes.
func Coerce(v feature.Value) feature.Value {
	s, ok := v.TextValue()
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if isNullText(s) {
		return feature.Null()
	}
	if !numericPattern.MatchString(s) {
		return feature.Text(s)
	}
	if !strings.Contains(s, ".") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return feature.Int(i)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return feature.Text(s)
	}
	return feature.Float(f)
}

// int64Bound is 2^63, the first float64 outside the int64 range.
const int64Bound = float64(1 << 63)

// AsInt resolves v to an integer score if it can be read as one. Floats are
// rounded half to even; text accepts any float syntax. Null, blank, "null",
// non-finite and nested values do not resolve.
func AsInt(v feature.Value) (int64, bool) {
	var f float64
	switch v.Kind() {
	case feature.KindInt:
		i, _ := v.IntValue()
		return i, true
	case feature.KindFloat:
		f, _ = v.FloatValue()
	case feature.KindBool:
		if b, _ := v.BoolValue(); b {
			return 1, true
		}
		return 0, true
	case feature.KindText:
		s, _ := v.TextValue()
		s = strings.TrimSpace(s)
		if isNullText(s) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	r := math.RoundToEven(f)
	if r >= int64Bound || r < -int64Bound {
		return 0, false
	}
	return int64(r), true
}

// AsFloat resolves v to a finite float. Text must parse as a float after
// trimming; blank or "null" text does not resolve.
func AsFloat(v feature.Value) (float64, bool) {
	var f float64
	switch v.Kind() {
	case feature.KindFloat:
		f, _ = v.FloatValue()
	case feature.KindInt:
		i, _ := v.IntValue()
		f = float64(i)
	case feature.KindBool:
		if b, _ := v.BoolValue(); b {
			f = 1
		}
	case feature.KindText:
		s, _ := v.TextValue()
		s = strings.TrimSpace(s)
		if isNullText(s) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
