// Package baseline decides which runs are held out as unfiltered baseline runs
// and measures the token savings of selected runs against them.
package baseline

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"time"
)

// DefaultRate is the fraction of runs held out as baseline.
const DefaultRate = 0.1

// #region config
// Config controls the baseline holdout.
type Config struct {
	Rate float64
	// Seeded derives the decision from (session key, timestamp) instead of
	// the global random source.
	Seeded bool
}

// DefaultConfig returns a 10% random holdout.
func DefaultConfig() Config {
	return Config{Rate: DefaultRate}
}

// #endregion config

// #region decide
// ShouldRunBaseline draws from the global source. A draw equal to the rate is
// not a baseline run.
func ShouldRunBaseline(cfg Config) bool {
	return rand.Float64() < cfg.Rate
}

// ShouldRunBaselineWith draws from r.
func ShouldRunBaselineWith(cfg Config, r *rand.Rand) bool {
	return r.Float64() < cfg.Rate
}

// ShouldRunBaselineSeeded is deterministic for a given seed.
func ShouldRunBaselineSeeded(cfg Config, seed uint64) bool {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Float64() < cfg.Rate
}

// GenerateBaselineSeed hashes the session key and timestamp with FNV-1a.
func GenerateBaselineSeed(sessionKey string, ts time.Time) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sessionKey))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(ts.UnixNano(), 10)))
	return h.Sum64()
}

// Decide applies cfg: seeded when configured and a session key is present,
// otherwise a draw from r, or from the global source when r is nil.
func Decide(cfg Config, sessionKey string, ts time.Time, r *rand.Rand) bool {
	if cfg.Seeded && sessionKey != "" {
		return ShouldRunBaselineSeeded(cfg, GenerateBaselineSeed(sessionKey, ts))
	}
	if r != nil {
		return ShouldRunBaselineWith(cfg, r)
	}
	return ShouldRunBaseline(cfg)
}

// #endregion decide

// #region recommend
// RecommendedBaselineRate shrinks the holdout as the arm inventory grows.
func RecommendedBaselineRate(armCount int) float64 {
	switch {
	case armCount <= 10:
		return 0.2
	case armCount <= 50:
		return 0.1
	default:
		return 0.05
	}
}

// TokenSavingsPercent compares average tokens per run. Zero when the baseline
// average is not positive; a selected average of zero is a 100% saving.
func TokenSavingsPercent(baselineAvgTokens, selectedAvgTokens float64) float64 {
	if baselineAvgTokens <= 0 || selectedAvgTokens < 0 {
		return 0
	}
	return (baselineAvgTokens - selectedAvgTokens) / baselineAvgTokens * 100
}

// #endregion recommend
