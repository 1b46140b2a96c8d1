package replay

import (
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
)

// #region types
// Replay actions.
const (
	ActionApply  = "apply"
	ActionGated  = "gated"
	ActionFailed = "failed"
)

// ReplayConfig bundles the update config (gate + priors) for a replay run.
type ReplayConfig struct {
	UpdateConfig update.UpdateConfig
}

// DefaultReplayConfig replays in the active phase; a passive replay would
// gate every trace.
func DefaultReplayConfig() ReplayConfig {
	cfg := update.DefaultUpdateConfig()
	cfg.Gate.Phase = gate.PhaseActive
	return ReplayConfig{UpdateConfig: cfg}
}

// ReplayResult captures the outcome of replaying one trace.
type ReplayResult struct {
	TraceID string
	Action  string // "apply" | "gated" | "failed"
	Reason  string
	Updated int
	Created int

	GateDecision gate.GateDecision
	Err          error
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTraces int
	Applied     int
	Gated       int
	Failed      int
	Updated     int
	Created     int
}

// #endregion types

// #region replay
// Replay applies traces to the store in order. A failed trace is recorded and
// replay continues. Replaying the same trace twice counts it twice.
func Replay(store posterior.Store, traces []trace.RunTrace, config ReplayConfig) []ReplayResult {
	results := make([]ReplayResult, 0, len(traces))
	for _, tr := range traces {
		res, err := update.UpdatePosteriors(store, tr, config.UpdateConfig)
		switch {
		case err != nil:
			results = append(results, ReplayResult{
				TraceID: tr.TraceID,
				Action:  ActionFailed,
				Reason:  err.Error(),
				Err:     err,
			})
		case res.Decision.Vetoed:
			results = append(results, ReplayResult{
				TraceID:      tr.TraceID,
				Action:       ActionGated,
				Reason:       res.Decision.Reason,
				GateDecision: res.Decision,
			})
		default:
			results = append(results, ReplayResult{
				TraceID:      tr.TraceID,
				Action:       ActionApply,
				Reason:       res.Decision.Reason,
				Updated:      res.Updated,
				Created:      res.Created,
				GateDecision: res.Decision,
			})
		}
	}
	return results
}

// Run replays and summarizes in one call.
func Run(store posterior.Store, traces []trace.RunTrace, config ReplayConfig) ([]ReplayResult, ReplaySummary) {
	results := Replay(store, traces, config)
	return results, Summarize(results)
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalTraces: len(results)}
	for _, r := range results {
		switch r.Action {
		case ActionApply:
			s.Applied++
		case ActionGated:
			s.Gated++
		case ActionFailed:
			s.Failed++
		}
		s.Updated += r.Updated
		s.Created += r.Created
	}
	return s
}

// #endregion replay
