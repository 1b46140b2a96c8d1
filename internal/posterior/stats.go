package posterior

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
)

// #region get-stats
// GetStats returns mean, pulls and a confidence bucket for id. ok is false when
// the arm has no posterior.
func GetStats(ps map[arm.ID]Posterior, id arm.ID) (Stats, bool) {
	p, ok := ps[id]
	if !ok {
		return Stats{}, false
	}
	return StatsOf(p), true
}

// StatsOf summarizes a single posterior.
func StatsOf(p Posterior) Stats {
	return Stats{Mean: p.Mean(), Pulls: p.Pulls, Confidence: ConfidenceFor(p.Pulls)}
}

// ConfidenceFor buckets a pull count.
func ConfidenceFor(pulls int) Confidence {
	switch {
	case pulls >= HighConfidencePulls:
		return ConfidenceHigh
	case pulls >= MediumConfidencePulls:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// #endregion get-stats

// #region sorted
// SortedByMean lists posteriors by mean descending, then pulls descending, then arm id.
func SortedByMean(ps map[arm.ID]Posterior) []Posterior {
	out := make([]Posterior, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		mi, mj := out[i].Mean(), out[j].Mean()
		if mi != mj {
			return mi > mj
		}
		if out[i].Pulls != out[j].Pulls {
			return out[i].Pulls > out[j].Pulls
		}
		return out[i].ArmID < out[j].ArmID
	})
	return out
}

// #endregion sorted

// #region thompson
// Sample draws theta ~ Beta(alpha, beta) for Thompson sampling.
func Sample(p Posterior, rng *rand.Rand) float64 {
	x := gamma(p.Alpha, rng)
	y := gamma(p.Beta, rng)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gamma draws from Gamma(shape, 1) using Marsaglia-Tsang. Shapes below 1 use
// the boost Gamma(a) = Gamma(a+1) * U^(1/a).
func gamma(shape float64, rng *rand.Rand) float64 {
	if shape <= 0 {
		return 0
	}
	if shape < 1 {
		u := rng.Float64()
		return gamma(shape+1, rng) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// #endregion thompson
