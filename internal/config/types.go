package config

import (
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/logging"
)

// Config is the full ctxlearn configuration.
type Config struct {
	Learning  LearningConfig  `koanf:"learning"`
	Priors    PriorsConfig    `koanf:"priors"`
	Reference ReferenceConfig `koanf:"reference"`
	Oracle    OracleConfig    `koanf:"oracle"`
	Storage   StorageConfig   `koanf:"storage"`
	Log       logging.Config  `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// LearningConfig controls phase, baseline holdout and selection.
type LearningConfig struct {
	Learner          string  `koanf:"learner"`
	Phase            string  `koanf:"phase"`
	BaselineRate     float64 `koanf:"baseline_rate"`
	SeededBaseline   bool    `koanf:"seeded_baseline"`
	MinPulls         int     `koanf:"min_pulls"`
	TokenBudget      int     `koanf:"token_budget"`
	K                int     `koanf:"k"`
	UpdateOnBaseline bool    `koanf:"update_on_baseline"`
}

// PriorConfig is a Beta(alpha, beta) prior.
type PriorConfig struct {
	Alpha float64 `koanf:"alpha"`
	Beta  float64 `koanf:"beta"`
}

// PriorsConfig holds the curated and learned priors.
type PriorsConfig struct {
	Curated PriorConfig `koanf:"curated"`
	Learned PriorConfig `koanf:"learned"`
}

// ReferenceConfig holds the memory reference thresholds.
type ReferenceConfig struct {
	MemoryShortLabelLen  int `koanf:"memory_short_label_len"`
	MemoryFingerprintLen int `koanf:"memory_fingerprint_len"`
}

// OracleConfig points at an optional remote decision oracle.
type OracleConfig struct {
	Addr           string        `koanf:"addr"`
	SelectTimeout  time.Duration `koanf:"select_timeout"`
	ObserveTimeout time.Duration `koanf:"observe_timeout"`
}

// StorageConfig selects the posterior backend.
type StorageConfig struct {
	Driver    string `koanf:"driver"`
	Path      string `koanf:"path"`
	BadgerDir string `koanf:"badger_dir"`
}

// MetricsConfig enables the /metrics listener.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)
