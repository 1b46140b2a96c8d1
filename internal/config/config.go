package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/logging"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Learning: LearningConfig{
			Learner:          "context",
			Phase:            string(gate.PhasePassive),
			BaselineRate:     0.1,
			MinPulls:         5,
			UpdateOnBaseline: true,
		},
		Priors: PriorsConfig{
			Curated: PriorConfig{Alpha: 3, Beta: 1},
			Learned: PriorConfig{Alpha: 1, Beta: 1},
		},
		Reference: ReferenceConfig{
			MemoryShortLabelLen:  20,
			MemoryFingerprintLen: 60,
		},
		Oracle: OracleConfig{
			SelectTimeout:  2 * time.Second,
			ObserveTimeout: 2 * time.Second,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "adaptive_context.db",
		},
		Log: logging.NewDefaultConfig(),
	}
}

// applyDefaults fills values that a file or env var blanked out.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Learning.Learner == "" {
		cfg.Learning.Learner = def.Learning.Learner
	}
	if cfg.Learning.Phase == "" {
		cfg.Learning.Phase = def.Learning.Phase
	}
	if cfg.Reference.MemoryShortLabelLen == 0 {
		cfg.Reference.MemoryShortLabelLen = def.Reference.MemoryShortLabelLen
	}
	if cfg.Reference.MemoryFingerprintLen == 0 {
		cfg.Reference.MemoryFingerprintLen = def.Reference.MemoryFingerprintLen
	}
	if cfg.Oracle.SelectTimeout == 0 {
		cfg.Oracle.SelectTimeout = def.Oracle.SelectTimeout
	}
	if cfg.Oracle.ObserveTimeout == 0 {
		cfg.Oracle.ObserveTimeout = def.Oracle.ObserveTimeout
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = def.Storage.Driver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error

	if _, err := gate.ParsePhase(c.Learning.Phase); err != nil {
		errs = append(errs, fmt.Errorf("learning.phase: %w", err))
	}
	if c.Learning.BaselineRate < 0 || c.Learning.BaselineRate > 1 {
		errs = append(errs, fmt.Errorf("learning.baseline_rate must be within [0,1], got %v", c.Learning.BaselineRate))
	}
	if c.Learning.MinPulls < 0 {
		errs = append(errs, fmt.Errorf("learning.min_pulls must not be negative"))
	}
	if c.Learning.TokenBudget < 0 {
		errs = append(errs, fmt.Errorf("learning.token_budget must not be negative"))
	}
	if c.Learning.K < 0 {
		errs = append(errs, fmt.Errorf("learning.k must not be negative"))
	}
	for name, p := range map[string]PriorConfig{"curated": c.Priors.Curated, "learned": c.Priors.Learned} {
		if p.Alpha <= 0 || p.Beta <= 0 {
			errs = append(errs, fmt.Errorf("priors.%s must have positive alpha and beta", name))
		}
	}
	if c.Reference.MemoryShortLabelLen < 0 || c.Reference.MemoryFingerprintLen < 0 {
		errs = append(errs, fmt.Errorf("reference thresholds must not be negative"))
	}
	if c.Oracle.SelectTimeout < 0 || c.Oracle.ObserveTimeout < 0 {
		errs = append(errs, fmt.Errorf("oracle timeouts must not be negative"))
	}
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverBadger:
		if c.Storage.BadgerDir == "" {
			errs = append(errs, fmt.Errorf("storage.badger_dir is required for the badger driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}
