// Package selector partitions candidate arms into included and excluded sets
// under a token budget. The remote oracle is preferred; any oracle failure
// falls through to first-fit packing.
package selector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region fallback
// FallbackSelect packs candidates first-fit in the given order. A zero budget
// includes everything. The result is always flagged as baseline because it is
// not a learned choice.
func FallbackSelect(candidates []arm.Arm, budget int) Result {
	return packWithFloor(candidates, budget, nil)
}

// packWithFloor reserves budget for forced arms first, then packs the rest in
// order.
func packWithFloor(candidates []arm.Arm, budget int, forced map[arm.ID]bool) Result {
	res := Result{IsBaseline: true, TotalTokenBudget: budget, Path: metrics.PathFallback}
	included := make(map[arm.ID]bool, len(candidates))

	for _, c := range candidates {
		if forced[c.ID] && !included[c.ID] {
			included[c.ID] = true
			res.UsedTokens += c.TokenCost
			res.Forced = append(res.Forced, c.ID)
		}
	}
	for _, c := range candidates {
		if included[c.ID] {
			continue
		}
		if budget == 0 || res.UsedTokens+c.TokenCost <= budget {
			included[c.ID] = true
			res.UsedTokens += c.TokenCost
		}
	}

	for _, c := range candidates {
		if included[c.ID] {
			res.SelectedArms = append(res.SelectedArms, c.ID)
		} else {
			res.ExcludedArms = append(res.ExcludedArms, c.ID)
		}
	}
	return res
}

// #endregion fallback

// #region selector
// Selector chooses arms per turn.
type Selector struct {
	cfg     Config
	oracle  Oracle
	store   posterior.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a selector. oracle and store may be nil; m may be nil.
func New(cfg Config, o Oracle, store posterior.Store, logger *zap.Logger, m *metrics.Metrics) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{cfg: cfg, oracle: o, store: store, logger: logger, metrics: m}
}

// Select partitions candidates. It never fails: a baseline run includes
// everything, and oracle errors or timeouts fall back to local packing.
func (s *Selector) Select(ctx context.Context, candidates []arm.Arm, selCtx trace.SelectionContext, isBaseline bool) Result {
	if isBaseline {
		res := Result{IsBaseline: true, TotalTokenBudget: 0, Path: metrics.PathBaseline}
		for _, c := range candidates {
			res.SelectedArms = append(res.SelectedArms, c.ID)
			res.UsedTokens += c.TokenCost
		}
		s.metrics.Selection(metrics.PathBaseline)
		return res
	}

	forced := s.underExplored(candidates)

	if s.oracle != nil {
		res, err := s.selectFromOracle(ctx, candidates, selCtx)
		if err == nil {
			res = applyFloor(res, candidates, forced)
			s.metrics.Selection(metrics.PathOracle)
			s.metrics.ExplorationForced(len(res.Forced))
			return res
		}
		s.logger.Debug("oracle unavailable, using fallback selection",
			zap.String("learner", s.cfg.Learner),
			zap.Error(err),
		)
	}

	var res Result
	if len(forced) == 0 {
		res = FallbackSelect(candidates, s.cfg.TokenBudget)
	} else {
		res = packWithFloor(candidates, s.cfg.TokenBudget, forced)
	}
	s.metrics.Selection(metrics.PathFallback)
	s.metrics.ExplorationForced(len(res.Forced))
	return res
}

func (s *Selector) selectFromOracle(ctx context.Context, candidates []arm.Arm, selCtx trace.SelectionContext) (Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.oracle.Select(ctx, oracle.SelectRequest{
		Learner:     s.cfg.Learner,
		Candidates:  oracle.CandidatesFromArms(candidates),
		Context:     selCtx,
		K:           s.cfg.K,
		TokenBudget: s.cfg.TokenBudget,
	})
	s.metrics.OracleCall("select", start, err)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		IsBaseline:       resp.IsBaseline,
		TotalTokenBudget: resp.TokenBudget,
		UsedTokens:       resp.UsedTokens,
		Path:             metrics.PathOracle,
	}
	for _, id := range resp.SelectedArms {
		res.SelectedArms = append(res.SelectedArms, arm.ID(id))
	}
	for _, id := range resp.ExcludedArms {
		res.ExcludedArms = append(res.ExcludedArms, arm.ID(id))
	}
	if len(resp.Scores) > 0 {
		res.Scores = make(map[arm.ID]float64, len(resp.Scores))
		for id, v := range resp.Scores {
			res.Scores[arm.ID(id)] = v
		}
	}
	return res, nil
}

// #endregion selector

// #region exploration-floor
// underExplored returns the arms the floor must include. Arms without a
// posterior count as zero pulls; if the store cannot be read every candidate
// is treated that way.
func (s *Selector) underExplored(candidates []arm.Arm) map[arm.ID]bool {
	if !s.cfg.ExplorationFloor || s.cfg.MinPulls <= 0 {
		return nil
	}
	var known map[arm.ID]posterior.Posterior
	if s.store != nil {
		var err error
		known, err = s.store.Load()
		if err != nil {
			s.logger.Debug("posterior load failed, treating arms as unexplored", zap.Error(err))
			known = nil
		}
	}
	forced := make(map[arm.ID]bool)
	for _, c := range candidates {
		if p, ok := known[c.ID]; !ok || p.Pulls < s.cfg.MinPulls {
			forced[c.ID] = true
		}
	}
	return forced
}

// applyFloor moves forced arms out of an oracle's excluded list.
func applyFloor(res Result, candidates []arm.Arm, forced map[arm.ID]bool) Result {
	if len(forced) == 0 {
		return res
	}
	cost := make(map[arm.ID]int, len(candidates))
	for _, c := range candidates {
		cost[c.ID] = c.TokenCost
	}
	kept := res.ExcludedArms[:0:0]
	for _, id := range res.ExcludedArms {
		if forced[id] {
			res.SelectedArms = append(res.SelectedArms, id)
			res.UsedTokens += cost[id]
			res.Forced = append(res.Forced, id)
			continue
		}
		kept = append(kept, id)
	}
	res.ExcludedArms = kept
	return res
}

// #endregion exploration-floor
