package report

import (
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region options
// Options carries the learner settings a status report describes.
type Options struct {
	Learner          string
	Phase            string
	BaselineRate     float64
	OracleConfigured bool
	// TopN limits the posterior listing; 0 lists every arm.
	TopN int
	// MinTracesForCoverage is how many traces must exist before a missing
	// baseline fails the coverage check.
	MinTracesForCoverage int
}

// DefaultOptions lists the top 10 arms.
func DefaultOptions() Options {
	return Options{Learner: "context", Phase: "passive", BaselineRate: 0.1, TopN: 10, MinTracesForCoverage: 20}
}

// #endregion options

// #region check
// Check captures a single health check result.
type Check struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Pass   bool    `json:"pass"`
	Detail string  `json:"detail,omitempty"`
}

// #endregion check

// #region status
// PosteriorView is one row of the posterior listing.
type PosteriorView struct {
	posterior.Posterior
	Mean       float64              `json:"mean"`
	Confidence posterior.Confidence `json:"confidence"`
}

// Status is the read-only summary behind the status command.
type Status struct {
	Learner                 string                       `json:"learner"`
	Phase                   string                       `json:"phase"`
	OracleConfigured        bool                         `json:"oracle_configured"`
	Traces                  trace.Summary                `json:"traces"`
	PosteriorCount          int                          `json:"posterior_count"`
	Confidence              map[posterior.Confidence]int `json:"confidence"`
	Top                     []PosteriorView              `json:"top"`
	BaselineRate            float64                      `json:"baseline_rate"`
	RecommendedBaselineRate float64                      `json:"recommended_baseline_rate"`
	Checks                  []Check                      `json:"checks"`
	Healthy                 bool                         `json:"healthy"`
	Reason                  string                       `json:"reason"`
}

// #endregion status
