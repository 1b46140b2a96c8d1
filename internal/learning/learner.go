package learning

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/baseline"
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/logging"
	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/reference"
	"github.com/danielpatrickdp/adaptive-context/internal/report"
	"github.com/danielpatrickdp/adaptive-context/internal/selector"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
	"go.uber.org/zap"
)

// ErrInvalidReward is returned by Reward for anything other than 0 or 1.
var ErrInvalidReward = errors.New("reward must be 0 or 1")

// #region learner
// Learner runs selection before a turn and observation after it.
type Learner struct {
	cfg      Config
	store    posterior.Store
	log      TraceLog
	oracle   OracleClient
	selector *selector.Selector
	capturer *trace.Capturer
	gate     *gate.Gate
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a learner. The exploration floor is on whenever MinPulls > 0.
func New(opts Options) *Learner {
	l := &Learner{
		cfg:      opts.Config,
		store:    opts.Store,
		log:      opts.Log,
		oracle:   opts.Oracle,
		capturer: trace.NewCapturer(reference.NewDetector(opts.Config.Reference)),
		gate:     gate.NewGate(opts.Config.UpdateConfig().Gate),
		logger:   logging.OrNop(opts.Logger),
		metrics:  opts.Metrics,
		now:      opts.Now,
		rng:      opts.Rand,
	}
	if l.now == nil {
		l.now = time.Now
	}

	var o selector.Oracle
	if opts.Oracle != nil {
		o = opts.Oracle
	}
	l.selector = selector.New(selector.Config{
		Learner:          opts.Config.Learner,
		TokenBudget:      opts.Config.TokenBudget,
		K:                opts.Config.K,
		ExplorationFloor: opts.Config.MinPulls > 0,
		MinPulls:         opts.Config.MinPulls,
		Timeout:          opts.Config.SelectTimeout,
	}, o, opts.Store, l.logger, opts.Metrics)
	return l
}

// Config returns the learner's configuration.
func (l *Learner) Config() Config { return l.cfg }

// #endregion learner

// #region select
// Select decides which candidates go into the prompt. It never fails: in the
// passive phase, or if selection itself breaks, every candidate is included.
func (l *Learner) Select(ctx context.Context, candidates []arm.Arm, selCtx trace.SelectionContext) selector.Result {
	res, ok := RunBestEffort(l.logger, l.metrics, "select", func() (selector.Result, error) {
		return l.selectArms(ctx, candidates, selCtx), nil
	})
	if !ok {
		return includeAll(candidates, false, metrics.PathPassive)
	}
	return res
}

func (l *Learner) selectArms(ctx context.Context, candidates []arm.Arm, selCtx trace.SelectionContext) selector.Result {
	if l.cfg.Phase != gate.PhaseActive {
		l.metrics.Selection(metrics.PathPassive)
		return includeAll(candidates, false, metrics.PathPassive)
	}
	l.rngMu.Lock()
	isBaseline := baseline.Decide(l.cfg.Baseline, selCtx.SessionKey, l.now(), l.rng)
	l.rngMu.Unlock()
	return l.selector.Select(ctx, candidates, selCtx, isBaseline)
}

func includeAll(candidates []arm.Arm, isBaseline bool, path string) selector.Result {
	res := selector.Result{IsBaseline: isBaseline, Path: path}
	for _, c := range candidates {
		res.SelectedArms = append(res.SelectedArms, c.ID)
		res.UsedTokens += c.TokenCost
	}
	return res
}

// WithSelection copies the selection outcome into capture params: the
// baseline flag and the candidates that were left out.
func WithSelection(params trace.CaptureParams, res selector.Result, candidates []arm.Arm) trace.CaptureParams {
	params.IsBaseline = res.IsBaseline
	excluded := make(map[arm.ID]bool, len(res.ExcludedArms))
	for _, id := range res.ExcludedArms {
		excluded[id] = true
	}
	params.Excluded = nil
	for _, c := range candidates {
		if excluded[c.ID] {
			params.Excluded = append(params.Excluded, c)
		}
	}
	return params
}

// #endregion select

// #region observe
// Observe records a finished turn: capture and append to the trace log, then
// update posteriors. With an oracle configured the oracle owns the update and
// its answers are mirrored into the local store; arms the oracle could not
// record are updated locally instead. Each step is best-effort. It returns nil
// only if the trace could not be built.
func (l *Learner) Observe(ctx context.Context, params trace.CaptureParams) *trace.RunTrace {
	if params.Now.IsZero() {
		params.Now = l.now()
	}
	tr, ok := l.capture(params)
	if !ok {
		return nil
	}

	decision := l.gate.Evaluate(tr)
	if decision.Vetoed {
		for _, v := range decision.VetoSignals {
			l.metrics.Gated(string(v.Type))
		}
		l.logger.Debug("posterior update gated",
			zap.String("trace_id", tr.TraceID),
			zap.String("reason", decision.Reason),
		)
		return &tr
	}

	local := tr
	if l.oracle != nil {
		local.Arms = l.observeOracle(ctx, tr)
		if len(local.Arms) == 0 {
			return &tr
		}
	}
	if res, ok := RunBestEffort(l.logger, l.metrics, "update_posteriors", func() (update.Result, error) {
		return update.UpdatePosteriors(l.store, local, l.cfg.UpdateConfig())
	}); ok {
		l.metrics.PosteriorUpdates(res.Updated, res.Created)
	}
	return &tr
}

// capture builds the trace and, when a trace log is configured, appends it. A
// failed append still yields the trace.
func (l *Learner) capture(params trace.CaptureParams) (trace.RunTrace, bool) {
	if l.log == nil {
		return RunBestEffort(l.logger, l.metrics, "capture", func() (trace.RunTrace, error) {
			return l.capturer.Capture(params), nil
		})
	}
	var tr trace.RunTrace
	captured := false
	RunBestEffort(l.logger, l.metrics, "capture_and_store", func() (struct{}, error) {
		var err error
		tr, err = l.capturer.CaptureAndStore(l.log, params)
		captured = true
		return struct{}{}, err
	})
	return tr, captured
}

// observeOracle reports included arms to the oracle and mirrors what it
// returns. It returns the outcomes the oracle did not record.
func (l *Learner) observeOracle(ctx context.Context, tr trace.RunTrace) []trace.ArmOutcome {
	var missed []trace.ArmOutcome
	var mirror []posterior.Posterior
	for _, o := range tr.Arms {
		if !o.Included {
			continue
		}
		reward := 0.0
		if o.Referenced {
			reward = 1
		}
		req := oracle.ObserveRequest{
			Learner: l.cfg.Learner,
			ArmID:   string(o.ArmID),
			Outcome: oracle.Outcome{Included: true, Referenced: o.Referenced},
			Reward:  reward,
			Context: tr.Context,
		}
		resp, ok := RunBestEffort(l.logger, l.metrics, "oracle_observe", func() (oracle.ObserveResponse, error) {
			return l.callObserve(ctx, req)
		})
		if !ok {
			missed = append(missed, o)
			continue
		}
		mirror = append(mirror, l.mirrored(o.ArmID, resp))
	}
	if len(mirror) > 0 {
		RunBestEffort(l.logger, l.metrics, "mirror_posteriors", func() (struct{}, error) {
			return struct{}{}, l.store.SaveBatch(mirror)
		})
	}
	return missed
}

// mirrored is the local copy of a posterior the oracle reported.
func (l *Learner) mirrored(id arm.ID, resp oracle.ObserveResponse) posterior.Posterior {
	return posterior.Posterior{
		ArmID:       id,
		Alpha:       resp.Alpha,
		Beta:        resp.Beta,
		Pulls:       resp.Pulls,
		LastUpdated: l.now().UTC(),
	}
}

func (l *Learner) callObserve(ctx context.Context, req oracle.ObserveRequest) (oracle.ObserveResponse, error) {
	if l.cfg.ObserveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.ObserveTimeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := l.oracle.Observe(ctx, req)
	l.metrics.OracleCall("observe", start, err)
	return resp, err
}

// #endregion observe

// #region operator-commands
// Reset sets one arm, or every arm when armID is empty, back to Beta(1,1).
func (l *Learner) Reset(armID string) (int, error) {
	n, err := l.store.Reset(arm.ID(armID))
	if err != nil {
		return 0, fmt.Errorf("%w: reset posteriors: %w", ErrBackendUnreachable, err)
	}
	l.logger.Info("posteriors reset", zap.String("arm_id", armID), zap.Int("count", n))
	return n, nil
}

// RewardResult is the outcome of an injected reward.
type RewardResult struct {
	ArmID     arm.ID                  `json:"arm_id"`
	Posterior posterior.Posterior     `json:"posterior"`
	Created   bool                    `json:"created"`
	Oracle    *oracle.ObserveResponse `json:"oracle,omitempty"`
}

// Reward applies an explicit 0/1 outcome to the arm ident resolves to. When an
// oracle is configured it applies the update and the local store only mirrors
// its answer; otherwise the local posterior is updated.
func (l *Learner) Reward(ctx context.Context, ident string, reward float64) (RewardResult, error) {
	if reward != 0 && reward != 1 {
		return RewardResult{}, fmt.Errorf("%w, got %v", ErrInvalidReward, reward)
	}
	known, err := l.store.Load()
	if err != nil {
		return RewardResult{}, fmt.Errorf("%w: load posteriors: %w", ErrBackendUnreachable, err)
	}
	ids := make([]arm.ID, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}
	id := ResolveArmID(ident, ids)
	if id == "" {
		return RewardResult{}, fmt.Errorf("empty arm identifier")
	}

	var result RewardResult
	result.ArmID = id
	if l.oracle != nil {
		resp, err := l.callObserve(ctx, oracle.ObserveRequest{
			Learner: l.cfg.Learner,
			ArmID:   string(id),
			Outcome: oracle.Outcome{Included: true, Referenced: reward == 1},
			Reward:  reward,
		})
		if err != nil {
			return RewardResult{}, fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
		}
		result.Oracle = &resp
		result.Posterior = l.mirrored(id, resp)
		_, existed := known[id]
		result.Created = !existed
		if err := l.store.Save(result.Posterior); err != nil {
			return RewardResult{}, fmt.Errorf("%w: mirror posterior: %w", ErrBackendUnreachable, err)
		}
		return result, nil
	}

	cfg := l.cfg.UpdateConfig()
	cfg.Now = l.now
	p, created, err := update.Observe(l.store, id, reward, cfg)
	if err != nil {
		return RewardResult{}, fmt.Errorf("%w: %w", ErrBackendUnreachable, err)
	}
	result.Posterior = p
	result.Created = created
	l.metrics.PosteriorUpdates(boolCount(!created), boolCount(created))
	return result, nil
}

// Status summarizes posteriors and traces. A missing trace log reports zero traces.
func (l *Learner) Status() (report.Status, error) {
	ps, err := l.store.Load()
	if err != nil {
		return report.Status{}, fmt.Errorf("%w: load posteriors: %w", ErrBackendUnreachable, err)
	}
	var summary trace.Summary
	if l.log != nil {
		summary, err = l.log.Summary()
		if err != nil {
			return report.Status{}, fmt.Errorf("%w: summarize traces: %w", ErrBackendUnreachable, err)
		}
	}
	opts := report.DefaultOptions()
	opts.Learner = l.cfg.Learner
	opts.Phase = string(l.cfg.Phase)
	opts.BaselineRate = l.cfg.Baseline.Rate
	opts.OracleConfigured = l.oracle != nil
	return report.Build(ps, summary, opts), nil
}

// Posteriors lists posteriors by descending mean; limit <= 0 lists all.
func (l *Learner) Posteriors(limit int) ([]report.PosteriorView, error) {
	ps, err := l.store.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: load posteriors: %w", ErrBackendUnreachable, err)
	}
	return report.Posteriors(ps, limit), nil
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion operator-commands
