// Package learning wires selection, capture and posterior updates into the
// per-turn pipeline a host calls, plus the operator commands.
package learning

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/baseline"
	"github.com/danielpatrickdp/adaptive-context/internal/config"
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
	"go.uber.org/zap"
)

// ErrBackendUnreachable wraps every storage or oracle failure reported by an
// operator command.
var ErrBackendUnreachable = errors.New("gateway or backend not reachable")

// #region interfaces
// TraceLog is where captured traces go. *trace.Log implements it.
type TraceLog interface {
	Append(tr trace.RunTrace) error
	Summary() (trace.Summary, error)
}

// OracleClient is a remote decision oracle. *oracle.Client implements it.
type OracleClient interface {
	Select(ctx context.Context, req oracle.SelectRequest) (oracle.SelectResponse, error)
	Observe(ctx context.Context, req oracle.ObserveRequest) (oracle.ObserveResponse, error)
}

// #endregion interfaces

// #region config
// Config is the learner's runtime configuration.
type Config struct {
	Learner          string
	Phase            gate.Phase
	Baseline         baseline.Config
	MinPulls         int
	TokenBudget      int
	K                int
	UpdateOnBaseline bool
	Curated          update.Prior
	Learned          update.Prior
	Reference        reference.Config
	SelectTimeout    time.Duration
	ObserveTimeout   time.Duration
}

// DefaultConfig mirrors config.Default().
func DefaultConfig() Config {
	return FromConfig(config.Default())
}

// FromConfig converts the loaded file/env configuration. The phase has
// already been validated by config.Validate.
func FromConfig(c config.Config) Config {
	return Config{
		Learner:          c.Learning.Learner,
		Phase:            gate.Phase(c.Learning.Phase),
		Baseline:         baseline.Config{Rate: c.Learning.BaselineRate, Seeded: c.Learning.SeededBaseline},
		MinPulls:         c.Learning.MinPulls,
		TokenBudget:      c.Learning.TokenBudget,
		K:                c.Learning.K,
		UpdateOnBaseline: c.Learning.UpdateOnBaseline,
		Curated:          update.Prior{Alpha: c.Priors.Curated.Alpha, Beta: c.Priors.Curated.Beta},
		Learned:          update.Prior{Alpha: c.Priors.Learned.Alpha, Beta: c.Priors.Learned.Beta},
		Reference: reference.Config{
			MemoryShortLabelLen:  c.Reference.MemoryShortLabelLen,
			MemoryFingerprintLen: c.Reference.MemoryFingerprintLen,
		},
		SelectTimeout:  c.Oracle.SelectTimeout,
		ObserveTimeout: c.Oracle.ObserveTimeout,
	}
}

// UpdateConfig returns the gate and priors used for posterior updates.
func (c Config) UpdateConfig() update.UpdateConfig {
	return update.UpdateConfig{
		Gate:    gate.GateConfig{Phase: c.Phase, UpdateOnBaseline: c.UpdateOnBaseline},
		Curated: c.Curated,
		Learned: c.Learned,
	}
}

// #endregion config

// #region options
// Options are the learner's collaborators. Store is required; the rest are
// optional.
type Options struct {
	Config  Config
	Store   posterior.Store
	Log     TraceLog
	Oracle  OracleClient
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Now is the clock for baseline seeding and timestamps; nil means time.Now.
	Now func() time.Time
	// Rand drives unseeded baseline draws; nil uses the global source.
	Rand *rand.Rand
}

// #endregion options
