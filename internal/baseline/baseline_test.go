package baseline

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedBaselineRate(t *testing.T) {
	assert.Equal(t, 0.2, RecommendedBaselineRate(0))
	assert.Equal(t, 0.2, RecommendedBaselineRate(10))
	assert.Equal(t, 0.1, RecommendedBaselineRate(11))
	assert.Equal(t, 0.1, RecommendedBaselineRate(50))
	assert.Equal(t, 0.05, RecommendedBaselineRate(51))
	assert.Equal(t, 0.05, RecommendedBaselineRate(5000))
}

func TestShouldRunBaselineBounds(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		assert.False(t, ShouldRunBaselineWith(Config{Rate: 0}, r))
		assert.True(t, ShouldRunBaselineWith(Config{Rate: 1}, r))
	}
}

func TestShouldRunBaselineRate(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 7))
	hits := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if ShouldRunBaselineWith(DefaultConfig(), r) {
			hits++
		}
	}
	assert.InDelta(t, 0.1, float64(hits)/n, 0.02)
}

func TestSeededIsDeterministic(t *testing.T) {
	cfg := Config{Rate: 0.5, Seeded: true}
	ts := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	seed := GenerateBaselineSeed("agent:main:telegram", ts)

	first := ShouldRunBaselineSeeded(cfg, seed)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, ShouldRunBaselineSeeded(cfg, seed))
	}
	assert.Equal(t, first, Decide(cfg, "agent:main:telegram", ts, nil))
}

func TestDecideDrawsFromSource(t *testing.T) {
	ts := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	a := rand.New(rand.NewPCG(7, 11))
	b := rand.New(rand.NewPCG(7, 11))
	cfg := Config{Rate: 0.5}
	for i := 0; i < 20; i++ {
		assert.Equal(t, ShouldRunBaselineWith(cfg, a), Decide(cfg, "agent:main", ts, b))
	}
	assert.True(t, Decide(Config{Rate: 1}, "", ts, nil))
	assert.False(t, Decide(Config{Rate: 0}, "", ts, nil))
}

func TestSeedDivergesOnInputs(t *testing.T) {
	ts := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	base := GenerateBaselineSeed("session-a", ts)

	assert.Equal(t, base, GenerateBaselineSeed("session-a", ts))
	assert.NotEqual(t, base, GenerateBaselineSeed("session-b", ts))
	assert.NotEqual(t, base, GenerateBaselineSeed("session-a", ts.Add(time.Millisecond)))
}

func TestSeededDecisionsVaryAcrossSessions(t *testing.T) {
	cfg := Config{Rate: 0.5, Seeded: true}
	ts := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	seen := map[bool]int{}
	for i := 0; i < 200; i++ {
		seen[ShouldRunBaselineSeeded(cfg, GenerateBaselineSeed(fmt.Sprintf("session-%d", i), ts))]++
	}
	assert.Greater(t, seen[true], 0)
	assert.Greater(t, seen[false], 0)
}

func TestTokenSavingsPercent(t *testing.T) {
	assert.InDelta(t, 25.0, TokenSavingsPercent(1000, 750), 1e-9)
	assert.InDelta(t, -10.0, TokenSavingsPercent(1000, 1100), 1e-9)
	assert.Equal(t, 0.0, TokenSavingsPercent(0, 500))
	assert.Equal(t, 100.0, TokenSavingsPercent(1000, 0), "selected runs that used no tokens")
}
