package normalize

import "github.com/okian/matchpred/internal/domain/feature"

// EnforceTypes forces every present, non-null required feature to its
// declared class: numeric features become floats (unparseable ones become
// null), string features become their canonical text.
func EnforceTypes(s *feature.Schema, in feature.Instance) {
	for k, v := range in {
		if v.IsNull() {
			continue
		}
		switch s.ClassOf(k) {
		case feature.ClassNumeric:
			if f, ok := AsFloat(v); ok {
				in[k] = feature.Float(f)
			} else {
				in[k] = feature.Null()
			}
		case feature.ClassString:
			if _, ok := v.TextValue(); !ok {
				in[k] = feature.Text(v.String())
			}
		}
	}
}
