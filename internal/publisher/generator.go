package publisher

import (
	"fmt"
	"math/rand"
)

// Table tennis scoring rules used by the generator.
const (
	pointsToWin = 11
	winMargin   = 2
	maxGames    = 7
)

var (
	countries = []string{"CHN", "JPN", "GER", "KOR", "SWE", "FRA", "BRA", "USA", "SGP", "EGY"}
	rounds    = []string{"R64", "R32", "R16", "QF", "SF", "F"}
)

// Generator produces synthetic match payloads with realistic game scores.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // synthetic data
}

// Match returns one payload. Unplayed games are null.
func (g *Generator) Match(n int) map[string]any {
	bestOf := 5
	if g.rng.Intn(2) == 0 {
		bestOf = maxGames
	}
	need := bestOf/2 + 1

	m := map[string]any{
		"match_id":           fmt.Sprintf("synthetic-%06d", n),
		"yr":                 2020 + g.rng.Intn(6),
		"round":              rounds[g.rng.Intn(len(rounds))],
		"country_a":          countries[g.rng.Intn(len(countries))],
		"country_b":          countries[g.rng.Intn(len(countries))],
		"player_a":           fmt.Sprintf("Player %d", g.rng.Intn(500)),
		"player_b":           fmt.Sprintf("Player %d", g.rng.Intn(500)),
		"tournament_country": countries[g.rng.Intn(len(countries))],
		"games":              nil,
		"games_tuples":       nil,
	}

	// Bias toward one side so outcomes vary between matches.
	edge := 0.3 + 0.4*g.rng.Float64()
	wonA, wonB := 0, 0
	for i := 1; i <= maxGames; i++ {
		ka, kb := fmt.Sprintf("game_%d_a", i), fmt.Sprintf("game_%d_b", i)
		if wonA == need || wonB == need {
			m[ka], m[kb] = nil, nil
			continue
		}
		a, b := g.game(edge)
		if a > b {
			wonA++
		} else {
			wonB++
		}
		m[ka], m[kb] = a, b
	}
	return m
}

// game plays points until one side reaches eleven with a two point lead.
func (g *Generator) game(edge float64) (a, b int) {
	for {
		if g.rng.Float64() < edge {
			a++
		} else {
			b++
		}
		if (a >= pointsToWin || b >= pointsToWin) && (a-b >= winMargin || b-a >= winMargin) {
			return a, b
		}
	}
}
