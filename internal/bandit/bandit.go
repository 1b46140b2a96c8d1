// Package bandit is a local Beta-Bernoulli Thompson sampling decision oracle.
// It serves the oracle contract over the posterior store so a host can run
// selection out of process.
package bandit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/oracle"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
)

// #region config
// Config controls the local oracle.
type Config struct {
	// Learner, when set, rejects requests for other learners.
	Learner      string
	BaselineRate float64
	MinPulls     int
	Update       update.UpdateConfig
}

// DefaultConfig returns a 10% baseline holdout and a floor of 5 pulls.
func DefaultConfig() Config {
	return Config{
		BaselineRate: 0.1,
		MinPulls:     5,
		Update:       update.DefaultUpdateConfig(),
	}
}

// #endregion config

// #region oracle
// Oracle implements oracle.Handler.
type Oracle struct {
	store  posterior.Store
	cfg    Config
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

var _ oracle.Handler = (*Oracle)(nil)

// New creates a local oracle. A nil rng is seeded from the clock.
func New(store posterior.Store, cfg Config, rng *rand.Rand, logger *zap.Logger) *Oracle {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{store: store, cfg: cfg, logger: logger, rng: rng}
}

func (o *Oracle) checkLearner(learner string) error {
	if o.cfg.Learner != "" && learner != "" && learner != o.cfg.Learner {
		return fmt.Errorf("%w: unknown learner %q", oracle.ErrInvalidRequest, learner)
	}
	return nil
}

// #endregion oracle

// #region select
type scored struct {
	idx    int
	id     arm.ID
	cost   int
	score  float64
	forced bool
}

// Select draws a Thompson sample per candidate, forces under-pulled arms in,
// then packs the rest by descending sample under the budget and k.
func (o *Oracle) Select(ctx context.Context, req oracle.SelectRequest) (oracle.SelectResponse, error) {
	if err := o.checkLearner(req.Learner); err != nil {
		return oracle.SelectResponse{}, err
	}
	if req.TokenBudget < 0 || req.K < 0 {
		return oracle.SelectResponse{}, fmt.Errorf("%w: negative budget or k", oracle.ErrInvalidRequest)
	}
	for i, c := range req.Candidates {
		if c.ID == "" {
			return oracle.SelectResponse{}, fmt.Errorf("%w: candidate %d has no id", oracle.ErrInvalidRequest, i)
		}
	}

	known, err := o.store.Load()
	if err != nil {
		return oracle.SelectResponse{}, fmt.Errorf("load posteriors: %w", err)
	}

	o.mu.Lock()
	isBaseline := o.rng.Float64() < o.cfg.BaselineRate
	items := make([]scored, len(req.Candidates))
	for i, c := range req.Candidates {
		id := arm.ID(c.ID)
		p, ok := known[id]
		if !ok {
			p = update.NewPosterior(id, o.cfg.Update)
		}
		items[i] = scored{
			idx:    i,
			id:     id,
			cost:   c.TokenCost,
			score:  posterior.Sample(p, o.rng),
			forced: p.Pulls < o.cfg.MinPulls,
		}
	}
	o.mu.Unlock()

	resp := oracle.SelectResponse{
		IsBaseline:  isBaseline,
		TokenBudget: req.TokenBudget,
		Scores:      make(map[string]float64, len(items)),
	}
	for _, it := range items {
		resp.Scores[string(it.id)] = it.score
	}

	included := make([]bool, len(items))
	if isBaseline {
		resp.TokenBudget = 0
		for i := range items {
			included[i] = true
		}
	} else {
		included = pack(items, req.TokenBudget, req.K)
	}

	for i, it := range items {
		if included[i] {
			resp.SelectedArms = append(resp.SelectedArms, string(it.id))
			resp.UsedTokens += it.cost
		} else {
			resp.ExcludedArms = append(resp.ExcludedArms, string(it.id))
		}
	}

	o.logger.Debug("oracle select",
		zap.String("learner", req.Learner),
		zap.Int("candidates", len(items)),
		zap.Int("selected", len(resp.SelectedArms)),
		zap.Bool("baseline", isBaseline),
	)
	return resp, nil
}

// pack returns inclusion flags in candidate order.
func pack(items []scored, budget, k int) []bool {
	included := make([]bool, len(items))
	used, count := 0, 0
	for _, it := range items {
		if it.forced {
			included[it.idx] = true
			used += it.cost
			count++
		}
	}

	ranked := make([]scored, 0, len(items))
	for _, it := range items {
		if !it.forced {
			ranked = append(ranked, it)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	for _, it := range ranked {
		if k > 0 && count >= k {
			break
		}
		if budget > 0 && used+it.cost > budget {
			continue
		}
		included[it.idx] = true
		used += it.cost
		count++
	}
	return included
}

// #endregion select

// #region observe
// Observe applies one reward. Excluded arms carry no observation and are
// rejected.
func (o *Oracle) Observe(ctx context.Context, req oracle.ObserveRequest) (oracle.ObserveResponse, error) {
	if err := o.checkLearner(req.Learner); err != nil {
		return oracle.ObserveResponse{}, err
	}
	if req.ArmID == "" {
		return oracle.ObserveResponse{}, fmt.Errorf("%w: missing arm_id", oracle.ErrInvalidRequest)
	}
	if !req.Outcome.Included {
		return oracle.ObserveResponse{}, fmt.Errorf("%w: arm %s was not included", oracle.ErrInvalidRequest, req.ArmID)
	}
	if req.Reward < 0 || req.Reward > 1 {
		return oracle.ObserveResponse{}, fmt.Errorf("%w: reward %v outside [0,1]", oracle.ErrInvalidRequest, req.Reward)
	}

	o.mu.Lock()
	p, _, err := update.Observe(o.store, arm.ID(req.ArmID), req.Reward, o.cfg.Update)
	o.mu.Unlock()
	if err != nil {
		return oracle.ObserveResponse{}, err
	}
	return oracle.ObserveResponse{
		ArmID: string(p.ArmID),
		Alpha: p.Alpha,
		Beta:  p.Beta,
		Mean:  p.Mean(),
		Pulls: p.Pulls,
	}, nil
}

// #endregion observe
