// Package report builds the read-only query surface over the posterior store
// and trace log.
package report

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/baseline"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region posteriors
// Posteriors lists posteriors sorted by mean. limit <= 0 lists all.
func Posteriors(ps map[arm.ID]posterior.Posterior, limit int) []PosteriorView {
	sorted := posterior.SortedByMean(ps)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]PosteriorView, 0, len(sorted))
	for _, p := range sorted {
		st := posterior.StatsOf(p)
		out = append(out, PosteriorView{Posterior: p, Mean: st.Mean, Confidence: st.Confidence})
	}
	return out
}

// #endregion posteriors

// #region build
// Build assembles a status report and runs the health checks.
func Build(ps map[arm.ID]posterior.Posterior, summary trace.Summary, opts Options) Status {
	st := Status{
		Learner:          opts.Learner,
		Phase:            opts.Phase,
		OracleConfigured: opts.OracleConfigured,
		Traces:           summary,
		PosteriorCount:   len(ps),
		Confidence: map[posterior.Confidence]int{
			posterior.ConfidenceLow:    0,
			posterior.ConfidenceMedium: 0,
			posterior.ConfidenceHigh:   0,
		},
		Top:          Posteriors(ps, opts.TopN),
		BaselineRate: opts.BaselineRate,
	}
	for _, p := range ps {
		st.Confidence[posterior.ConfidenceFor(p.Pulls)]++
	}

	armCount := len(ps)
	if summary.ArmCount > armCount {
		armCount = summary.ArmCount
	}
	st.RecommendedBaselineRate = baseline.RecommendedBaselineRate(armCount)

	st.Checks, st.Healthy, st.Reason = runChecks(st, opts)
	return st
}

// runChecks evaluates the checks in order. The first failure becomes the reason.
func runChecks(st Status, opts Options) ([]Check, bool, string) {
	var checks []Check
	var failReasons []string

	// 1. Configured holdout is not far below the recommendation
	ratePass := st.BaselineRate >= st.RecommendedBaselineRate/2
	checks = append(checks, Check{
		Name:   "baseline_rate",
		Value:  st.BaselineRate,
		Pass:   ratePass,
		Detail: fmt.Sprintf("recommended %.2f for %d arms", st.RecommendedBaselineRate, st.PosteriorCount),
	})
	if !ratePass {
		failReasons = append(failReasons, fmt.Sprintf("baseline rate %.2f below half of recommended %.2f", st.BaselineRate, st.RecommendedBaselineRate))
	}

	// 2. Some baseline runs exist once there is enough history
	var coverage float64
	if st.Traces.TraceCount > 0 {
		coverage = float64(st.Traces.BaselineRuns) / float64(st.Traces.TraceCount)
	}
	coveragePass := st.Traces.TraceCount < opts.MinTracesForCoverage || st.Traces.BaselineRuns > 0
	checks = append(checks, Check{
		Name:  "baseline_coverage",
		Value: coverage,
		Pass:  coveragePass,
	})
	if !coveragePass {
		failReasons = append(failReasons, fmt.Sprintf("no baseline runs in %d traces", st.Traces.TraceCount))
	}

	// 3. Savings: informational only, a negative value does not fail the report
	checks = append(checks, Check{
		Name:  "token_savings",
		Value: st.Traces.TokenSavingsPercent,
		Pass:  st.Traces.TokenSavingsPercent >= 0,
	})

	if len(failReasons) == 0 {
		return checks, true, "all checks passed"
	}
	if len(failReasons) > 1 {
		return checks, false, fmt.Sprintf("%d checks failed: %s", len(failReasons), failReasons[0])
	}
	return checks, false, failReasons[0]
}

// #endregion build
