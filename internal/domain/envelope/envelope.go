// Package envelope reduces a transport event body to the JSON object it
// carries, peeling at most two layers of queue envelope.
package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxPeels bounds how many envelope layers are removed.
const MaxPeels = 2

// Shape names an envelope layout recognised by the decoder.
type Shape uint8

// Known shapes.
const (
	// ShapeNone means the object is not wrapped.
	ShapeNone Shape = iota
	// ShapeMessage is a push envelope: {"message": {"data": <base64 or bytes>}}.
	ShapeMessage
	// ShapeData is a bare wrapper: {"data": "<base64>"}.
	ShapeData
)

func (s Shape) String() string {
	switch s {
	case ShapeMessage:
		return "message"
	case ShapeData:
		return "data"
	default:
		return "none"
	}
}

// Detect classifies obj. A message envelope whose data is neither a string
// nor bytes is not peelable through "message" and falls through to the
// top-level data check.
func Detect(obj any) Shape {
	m, ok := obj.(map[string]any)
	if !ok {
		return ShapeNone
	}
	if msg, ok := m["message"].(map[string]any); ok {
		switch msg["data"].(type) {
		case string, []byte:
			return ShapeMessage
		}
	}
	if _, ok := m["data"].(string); ok {
		return ShapeData
	}
	return ShapeNone
}

// Decode turns an event body into a JSON object. data may be raw bytes of
// UTF-8 JSON, JSON text, an already decoded object, or anything
// JSON-serializable.
func Decode(data any) (map[string]any, error) {
	obj, err := initial(data)
	if err != nil {
		return nil, err
	}

	for i := 0; i < MaxPeels; i++ {
		next, ok, err := peel(obj)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		obj = next
	}

	m, ok := obj.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

func initial(data any) (any, error) {
	switch t := data.(type) {
	case []byte:
		return parseJSON(t)
	case json.RawMessage:
		return parseJSON(t)
	case string:
		return parseJSON([]byte(t))
	case map[string]any:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerialize, err)
		}
		return parseJSON(b)
	}
}

// peel removes one layer. ok is false when obj has no peelable shape or a
// bare data wrapper fails to decode; in both cases obj is kept.
func peel(obj any) (any, bool, error) {
	switch Detect(obj) {
	case ShapeMessage:
		msg := obj.(map[string]any)["message"].(map[string]any)
		switch raw := msg["data"].(type) {
		case string:
			b, err := decodeBase64(raw)
			if err != nil {
				return nil, false, fmt.Errorf("message.data: %w", err)
			}
			next, err := parseJSON(b)
			if err != nil {
				return nil, false, fmt.Errorf("message.data: %w", err)
			}
			return next, true, nil
		case []byte:
			next, err := parseJSON(raw)
			if err != nil {
				return nil, false, fmt.Errorf("message.data: %w", err)
			}
			return next, true, nil
		}
	case ShapeData:
		raw := obj.(map[string]any)["data"].(string)
		b, err := decodeBase64(raw)
		if err != nil {
			return obj, false, nil
		}
		next, err := parseJSON(b)
		if err != nil {
			return obj, false, nil
		}
		return next, true, nil
	}
	return obj, false, nil
}

func decodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBase64, err)
	}
	return b, nil
}

// parseJSON decodes b keeping number literals as json.Number so integer and
// decimal inputs stay distinguishable downstream.
func parseJSON(b []byte) (any, error) {
	if !utf8.Valid(b) {
		return nil, ErrInvalidUTF8
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrInvalidJSON)
	}
	return v, nil
}
