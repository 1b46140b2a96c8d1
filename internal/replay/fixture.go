package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description        string                     `json:"description"`
	Config             FixtureConfig              `json:"config"`
	Traces             []trace.RunTrace           `json:"traces"`
	ExpectedResults    []FixtureExpectedResult    `json:"expected_results"`
	ExpectedPosteriors []FixtureExpectedPosterior `json:"expected_posteriors"`
}

// FixtureConfig mirrors the gate and prior settings with JSON tags.
type FixtureConfig struct {
	Phase            string        `json:"phase"`
	UpdateOnBaseline *bool         `json:"update_on_baseline"`
	CuratedPrior     *FixturePrior `json:"curated_prior"`
	LearnedPrior     *FixturePrior `json:"learned_prior"`
}

// FixturePrior mirrors update.Prior.
type FixturePrior struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// FixtureExpectedResult captures the expected action per trace.
type FixtureExpectedResult struct {
	TraceID string `json:"trace_id"`
	Action  string `json:"action"`
}

// FixtureExpectedPosterior is the expected store state after replay.
type FixtureExpectedPosterior struct {
	ArmID string  `json:"arm_id"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Pulls int     `json:"pulls"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig. Unset fields keep
// the replay defaults.
func (fc *FixtureConfig) ToReplayConfig() (ReplayConfig, error) {
	cfg := DefaultReplayConfig()
	if fc.Phase != "" {
		phase, err := gate.ParsePhase(fc.Phase)
		if err != nil {
			return ReplayConfig{}, err
		}
		cfg.UpdateConfig.Gate.Phase = phase
	}
	if fc.UpdateOnBaseline != nil {
		cfg.UpdateConfig.Gate.UpdateOnBaseline = *fc.UpdateOnBaseline
	}
	if fc.CuratedPrior != nil {
		cfg.UpdateConfig.Curated = update.Prior{Alpha: fc.CuratedPrior.Alpha, Beta: fc.CuratedPrior.Beta}
	}
	if fc.LearnedPrior != nil {
		cfg.UpdateConfig.Learned = update.Prior{Alpha: fc.LearnedPrior.Alpha, Beta: fc.LearnedPrior.Beta}
	}
	return cfg, nil
}

// #endregion fixture-loader
