package update

import (
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/gate"
)

// #region prior
// Prior is the Beta(alpha, beta) an arm starts from on first observation.
type Prior struct {
	Alpha float64 `koanf:"alpha"`
	Beta  float64 `koanf:"beta"`
}

// CuratedPrior is optimistic: hand-picked components are assumed useful.
func CuratedPrior() Prior { return Prior{Alpha: 3, Beta: 1} }

// LearnedPrior is uniform and used for workspace files and unparseable ids.
func LearnedPrior() Prior { return Prior{Alpha: 1, Beta: 1} }

// #endregion prior

// #region update-config
// UpdateConfig holds the gate and priors for posterior updates.
type UpdateConfig struct {
	Gate    gate.GateConfig
	Curated Prior
	Learned Prior
	// Now stamps LastUpdated; nil means time.Now().UTC().
	Now func() time.Time
}

// DefaultUpdateConfig returns passive-phase defaults.
func DefaultUpdateConfig() UpdateConfig {
	return UpdateConfig{
		Gate:    gate.DefaultGateConfig(),
		Curated: CuratedPrior(),
		Learned: LearnedPrior(),
	}
}

func (c UpdateConfig) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// #endregion update-config

// #region update-result
// Result counts posteriors touched by one update. Decision explains a skip.
type Result struct {
	Updated  int
	Created  int
	Decision gate.GateDecision
}

// Add folds another result's counts into r.
func (r *Result) Add(o Result) {
	r.Updated += o.Updated
	r.Created += o.Created
}

// #endregion update-result
