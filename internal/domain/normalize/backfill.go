package normalize

import (
	"math/big"

	"github.com/okian/matchpred/internal/domain/feature"
)

// tightMargin is the largest point difference still counted as a tight game.
const tightMargin = 2

type scorePair struct{ a, b int64 }

// completePairs collects game scores where both sides resolve to integers.
func completePairs(in feature.Instance) []scorePair {
	pairs := make([]scorePair, 0, feature.MaxGames)
	for i := 1; i <= feature.MaxGames; i++ {
		ka, kb := feature.GameKeys(i)
		a, okA := AsInt(in[ka])
		b, okB := AsInt(in[kb])
		if okA && okB {
			pairs = append(pairs, scorePair{a: a, b: b})
		}
	}
	return pairs
}

// isClutch marks best-of-5/7 deciding-game counts. The match format itself
// is not consulted.
func isClutch(n int) bool { return n == 5 || n == 7 }

// Backfill derives aggregate features from per-game scores. Aggregates
// already present, even as null, are never overwritten. With no complete
// pair nothing is derived.
func Backfill(in feature.Instance) {
	pairs := completePairs(in)
	if len(pairs) == 0 {
		return
	}

	// Scores are unbounded, so sums and differences use big integers.
	ptsA, ptsB := new(big.Int), new(big.Int)
	var tight int64
	d := new(big.Int)
	for _, p := range pairs {
		a, b := big.NewInt(p.a), big.NewInt(p.b)
		ptsA.Add(ptsA, a)
		ptsB.Add(ptsB, b)
		if d.Sub(a, b).Abs(d).Cmp(big.NewInt(tightMargin)) <= 0 {
			tight++
		}
	}
	n := float64(len(pairs))
	avgA := bigFloat(ptsA) / n
	avgB := bigFloat(ptsB) / n
	var clutch int64
	if isClutch(len(pairs)) {
		clutch = 1
	}

	total := new(big.Int).Add(ptsA, ptsB)
	totalValue := feature.Int(total.Int64())
	if !total.IsInt64() {
		totalValue = feature.Float(bigFloat(total))
	}

	in.SetDefault(feature.KeyTotalPoints, totalValue)
	in.SetDefault(feature.KeyAvgPointsA, feature.Float(avgA))
	in.SetDefault(feature.KeyAvgPointsB, feature.Float(avgB))
	in.SetDefault(feature.KeyAvgPointDiff, feature.Float(avgA-avgB))
	in.SetDefault(feature.KeyTightGames, feature.Int(tight))
	in.SetDefault(feature.KeyClutchGames, feature.Int(clutch))
}

// bigFloat returns the float64 nearest to x.
func bigFloat(x *big.Int) float64 {
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
