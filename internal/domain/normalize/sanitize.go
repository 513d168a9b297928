package normalize

import (
	"strings"

	"github.com/okian/matchpred/internal/domain/feature"
)

// PickInstance selects the feature-bearing object from a decoded payload:
// a nested "instance" object when present, the payload itself otherwise.
func PickInstance(payload map[string]any) map[string]any {
	if inst, ok := payload["instance"].(map[string]any); ok {
		return inst
	}
	return payload
}

// Sanitize returns a cleaned copy of in: blocked keys dropped, the year
// forced to trimmed text, every other value coerced.
func Sanitize(s *feature.Schema, in feature.Instance) feature.Instance {
	out := make(feature.Instance, len(in))
	for k, v := range in {
		if s.Blocked(k) {
			continue
		}
		if k == feature.KeyYear {
			out[k] = canonicalYear(v)
			continue
		}
		out[k] = Coerce(v)
	}
	return out
}

func canonicalYear(v feature.Value) feature.Value {
	if v.IsNull() {
		return v
	}
	return feature.Text(strings.TrimSpace(v.String()))
}
