// Package feature holds the typed feature model: scalar values, loose
// instances, the immutable schema and the finalized vector sent to the model.
package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindText
	KindRaw // nested JSON (array/object), passed through untouched
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Value is a tagged scalar. The zero Value is Null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	raw  json.RawMessage
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int wraps an integer.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float wraps a float.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Text wraps a string.
func Text(v string) Value { return Value{kind: KindText, s: v} }

// Raw wraps nested JSON. The bytes are copied.
func Raw(v json.RawMessage) Value {
	return Value{kind: KindRaw, raw: append(json.RawMessage(nil), v...)}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IntValue returns the integer payload and whether v is an Int.
func (v Value) IntValue() (int64, bool) { return v.i, v.kind == KindInt }

// FloatValue returns the float payload and whether v is a Float.
func (v Value) FloatValue() (float64, bool) { return v.f, v.kind == KindFloat }

// BoolValue returns the boolean payload and whether v is a Bool.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// TextValue returns the string payload and whether v is Text.
func (v Value) TextValue() (string, bool) { return v.s, v.kind == KindText }

// RawValue returns the nested JSON and whether v is Raw.
func (v Value) RawValue() (json.RawMessage, bool) { return v.raw, v.kind == KindRaw }

// Equal compares kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	case KindText:
		return v.s == o.s
	case KindRaw:
		return bytes.Equal(v.raw, o.raw)
	}
	return false
}

// String renders the canonical text form used for string-class features:
// integers in decimal, floats in shortest round-trip form with a trailing
// ".0" when integral, booleans as True/False, nested values as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindText:
		return v.s
	case KindRaw:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.raw); err != nil {
			return string(v.raw)
		}
		return buf.String()
	default:
		return "null"
	}
}

// FormatFloat renders f in shortest round-trip form. Magnitudes in
// [1e-4, 1e16) use positional notation, others use exponent notation.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes v as its natural JSON type. Floats keep a decimal
// point so the receiver sees a float; non-finite floats encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.i, 10)), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return []byte(FormatFloat(v.f)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindText:
		return json.Marshal(v.s)
	case KindRaw:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// GoString helps test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("feature.Value{%s:%s}", v.kind, v.String())
}
