package feature

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Vector is a finalized feature instance: exactly the schema's required
// features, in schema order. Only NewVector creates one.
type Vector struct {
	schema *Schema
	values []Value
}

// NewVector validates in against s and snapshots the required features.
// Keys outside the schema are not carried over.
func NewVector(s *Schema, in Instance) (Vector, error) {
	if missing := s.Missing(in); len(missing) > 0 {
		return Vector{}, &MissingFeaturesError{Names: missing}
	}
	values := make([]Value, len(s.required))
	for i, name := range s.required {
		values[i] = in[name]
	}
	return Vector{schema: s, values: values}, nil
}

// Len is the number of features.
func (v Vector) Len() int { return len(v.values) }

// Get returns the value of a required feature.
func (v Vector) Get(name string) (Value, bool) {
	if v.schema == nil {
		return Value{}, false
	}
	i, ok := v.schema.index[name]
	if !ok {
		return Value{}, false
	}
	return v.values[i], true
}

// Instance returns the vector as a loose instance.
func (v Vector) Instance() Instance {
	if v.schema == nil {
		return Instance{}
	}
	out := make(Instance, len(v.values))
	for i, name := range v.schema.required {
		out[name] = v.values[i]
	}
	return out
}

// MarshalJSON writes an object whose keys follow schema order.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if v.schema != nil {
		for i, name := range v.schema.required {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := v.values[i].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MissingFeaturesError names every required feature absent after
// normalization.
type MissingFeaturesError struct {
	Names []string
}

func (e *MissingFeaturesError) Error() string {
	return "Missing features: " + strings.Join(e.Names, ", ")
}

// Is lets errors.Is match ErrMissingFeatures.
func (e *MissingFeaturesError) Is(target error) bool {
	return target == ErrMissingFeatures
}
