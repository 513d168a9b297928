package feature

import "fmt"

// Feature names with special handling.
const (
	KeyYear         = "yr"
	KeyRound        = "round"
	KeyTotalPoints  = "total_points"
	KeyAvgPointsA   = "avg_points_scored_a"
	KeyAvgPointsB   = "avg_points_scored_b"
	KeyAvgPointDiff = "avg_point_diff"
	KeyTightGames   = "tight_games"
	KeyClutchGames  = "clutch_games"
	KeyWinner       = "winner"
)

// MaxGames is the number of per-game score pairs a match can carry.
const MaxGames = 7

// GameKeys returns the per-game score keys for game i (1-based).
func GameKeys(i int) (a, b string) {
	return fmt.Sprintf("game_%d_a", i), fmt.Sprintf("game_%d_b", i)
}

// requiredFeatures is the model input contract, in training-schema order.
var requiredFeatures = []string{
	KeyAvgPointDiff, KeyAvgPointsA, KeyAvgPointsB, KeyTotalPoints,
	KeyTightGames, KeyClutchGames,
	"country_a", "country_b", "player_a", "player_b",
	"tournament_country", KeyYear, KeyRound,
	"game_1_a", "game_1_b", "game_2_a", "game_2_b", "game_3_a", "game_3_b",
	"game_4_a", "game_4_b", "game_5_a", "game_5_b", "game_6_a", "game_6_b",
	"game_7_a", "game_7_b",
	// must exist as keys; null is accepted
	"games",
	"games_tuples",
}

// Class is the declared type class of a required feature.
type Class uint8

// Type classes.
const (
	ClassNone Class = iota // not a required feature
	ClassNumeric
	ClassString
)

// Schema is the immutable model contract. Build it once at startup and pass
// it to everything that needs it.
type Schema struct {
	required  []string
	index     map[string]int
	blocklist map[string]struct{}
	numeric   map[string]struct{}
}

// DefaultSchema returns the contract of the deployed match model.
func DefaultSchema() *Schema {
	return NewSchema(requiredFeatures,
		[]string{KeyWinner},
		[]string{KeyAvgPointDiff, KeyAvgPointsA, KeyAvgPointsB},
	)
}

// NewSchema builds a Schema. Numeric names outside required are ignored;
// every other required name is string class.
func NewSchema(required, blocklist, numeric []string) *Schema {
	s := &Schema{
		required:  append([]string(nil), required...),
		index:     make(map[string]int, len(required)),
		blocklist: make(map[string]struct{}, len(blocklist)),
		numeric:   make(map[string]struct{}, len(numeric)),
	}
	for i, name := range s.required {
		s.index[name] = i
	}
	for _, name := range blocklist {
		s.blocklist[name] = struct{}{}
	}
	for _, name := range numeric {
		if _, ok := s.index[name]; ok {
			s.numeric[name] = struct{}{}
		}
	}
	return s
}

// Required returns a copy of the required feature names in order.
func (s *Schema) Required() []string {
	return append([]string(nil), s.required...)
}

// Len is the number of required features.
func (s *Schema) Len() int { return len(s.required) }

// Blocked reports whether name must never reach the model.
func (s *Schema) Blocked(name string) bool {
	_, ok := s.blocklist[name]
	return ok
}

// ClassOf returns the type class of name.
func (s *Schema) ClassOf(name string) Class {
	if _, ok := s.index[name]; !ok {
		return ClassNone
	}
	if _, ok := s.numeric[name]; ok {
		return ClassNumeric
	}
	return ClassString
}

// Missing lists required names absent from in, in schema order.
func (s *Schema) Missing(in Instance) []string {
	var missing []string
	for _, name := range s.required {
		if !in.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
