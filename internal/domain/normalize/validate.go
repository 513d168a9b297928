package normalize

import "github.com/okian/matchpred/internal/domain/feature"

// Prepare runs the cleaning steps on an extracted instance: sanitize,
// backfill aggregates, enforce type classes. raw is not modified.
func Prepare(s *feature.Schema, raw map[string]any) feature.Instance {
	in := Sanitize(s, feature.FromMap(raw))
	Backfill(in)
	EnforceTypes(s, in)
	return in
}

// Validate checks that every required feature is present as a key and
// returns the model vector. Null values are accepted.
func Validate(s *feature.Schema, in feature.Instance) (feature.Vector, error) {
	return feature.NewVector(s, in)
}

// Normalize runs the whole chain on a decoded payload.
func Normalize(s *feature.Schema, payload map[string]any) (feature.Vector, error) {
	return Validate(s, Prepare(s, PickInstance(payload)))
}
