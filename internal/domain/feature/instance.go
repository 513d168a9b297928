package feature

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Instance is a loose, flat feature mapping. A missing key and a key holding
// Null are different things: validation only cares about presence.
type Instance map[string]Value

// Has reports whether key is present, regardless of its value.
func (in Instance) Has(key string) bool {
	_, ok := in[key]
	return ok
}

// Get returns the value for key and whether it is present.
func (in Instance) Get(key string) (Value, bool) {
	v, ok := in[key]
	return v, ok
}

// SetDefault stores v under key only when key is absent and reports whether
// it did.
func (in Instance) SetDefault(key string, v Value) bool {
	if in.Has(key) {
		return false
	}
	in[key] = v
	return true
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (in Instance) Clone() Instance {
	out := make(Instance, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Keys returns the present keys in lexical order.
func (in Instance) Keys() []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether both instances hold the same keys and values.
func (in Instance) Equal(o Instance) bool {
	if len(in) != len(o) {
		return false
	}
	for k, v := range in {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// FromMap converts a decoded JSON object into an Instance.
func FromMap(m map[string]any) Instance {
	in := make(Instance, len(m))
	for k, v := range m {
		in[k] = FromAny(v)
	}
	return in
}

// FromAny converts a decoded JSON value into a Value. JSON numbers decoded
// with UseNumber keep their integer/decimal distinction.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return Text(t)
	case json.Number:
		return fromNumber(t.String())
	case float64:
		return Float(t)
	case float32:
		return Float(float64(t))
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint32:
		return Int(int64(t))
	case []byte:
		return Text(string(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Text(fmt.Sprint(t))
		}
		return Raw(b)
	}
}

// fromNumber maps a JSON number literal to Int when it has no fraction or
// exponent and fits in int64, Float otherwise.
func fromNumber(lit string) Value {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(i)
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Text(lit)
	}
	return Float(f)
}
