package update

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region beta-update
// ApplyReward performs the Beta-Bernoulli update. reward is clamped to [0, 1].
func ApplyReward(p posterior.Posterior, reward float64) posterior.Posterior {
	if reward < 0 {
		reward = 0
	}
	if reward > 1 {
		reward = 1
	}
	p.Alpha += reward
	p.Beta += 1 - reward
	p.Pulls++
	return p
}

// PriorFor picks the starting prior for an arm. Files and malformed ids get the
// learned prior; every other type gets the curated one.
func PriorFor(id arm.ID, cfg UpdateConfig) Prior {
	parsed, ok := arm.Parse(string(id))
	if !ok {
		return cfg.Learned
	}
	switch parsed.Type {
	case arm.TypeFile:
		return cfg.Learned
	case arm.TypeTool, arm.TypeMemory, arm.TypeSkill, arm.TypeSection:
		return cfg.Curated
	}
	return cfg.Learned
}

// NewPosterior returns the prior posterior for an unseen arm.
func NewPosterior(id arm.ID, cfg UpdateConfig) posterior.Posterior {
	prior := PriorFor(id, cfg)
	return posterior.Posterior{ArmID: id, Alpha: prior.Alpha, Beta: prior.Beta}
}

// #endregion beta-update

// #region update-posteriors
// UpdatePosteriors applies one trace to the store. Vetoed traces are a no-op
// with zero counts. All writes for the trace land in a single batch.
func UpdatePosteriors(store posterior.Store, tr trace.RunTrace, cfg UpdateConfig) (Result, error) {
	decision := gate.NewGate(cfg.Gate).Evaluate(tr)
	if decision.Vetoed {
		return Result{Decision: decision}, nil
	}

	now := cfg.now()
	touched := make(map[arm.ID]posterior.Posterior)
	var order []arm.ID
	res := Result{Decision: decision}

	for _, o := range tr.Arms {
		if !o.Included {
			continue
		}
		p, seen := touched[o.ArmID]
		if seen {
			res.Updated++
		} else {
			existing, err := store.Get(o.ArmID)
			switch {
			case err == nil:
				p = existing
				res.Updated++
			case errors.Is(err, posterior.ErrNotFound):
				p = NewPosterior(o.ArmID, cfg)
				res.Created++
			default:
				return Result{}, fmt.Errorf("read posterior %s: %w", o.ArmID, err)
			}
			order = append(order, o.ArmID)
		}

		reward := 0.0
		if o.Referenced {
			reward = 1.0
		}
		p = ApplyReward(p, reward)
		p.LastUpdated = now
		touched[o.ArmID] = p
	}

	if len(order) == 0 {
		return res, nil
	}
	batch := make([]posterior.Posterior, 0, len(order))
	for _, id := range order {
		batch = append(batch, touched[id])
	}
	if err := store.SaveBatch(batch); err != nil {
		return Result{}, fmt.Errorf("save posteriors for trace %s: %w", tr.TraceID, err)
	}
	return res, nil
}

// BatchUpdatePosteriors folds UpdatePosteriors over traces in order. Replaying
// a trace twice counts it twice. On error the counts so far are returned.
func BatchUpdatePosteriors(store posterior.Store, traces []trace.RunTrace, cfg UpdateConfig) (Result, error) {
	var total Result
	for _, tr := range traces {
		r, err := UpdatePosteriors(store, tr, cfg)
		if err != nil {
			return total, err
		}
		total.Add(r)
	}
	return total, nil
}

// #endregion update-posteriors

// #region observe
// Observe applies a single explicit reward to one arm, bypassing the trace
// gates. Used by operator reward injection and the local oracle.
func Observe(store posterior.Store, id arm.ID, reward float64, cfg UpdateConfig) (posterior.Posterior, bool, error) {
	p, err := store.Get(id)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, posterior.ErrNotFound):
		p = NewPosterior(id, cfg)
		created = true
	default:
		return posterior.Posterior{}, false, fmt.Errorf("read posterior %s: %w", id, err)
	}
	p = ApplyReward(p, reward)
	p.LastUpdated = cfg.now()
	if err := store.Save(p); err != nil {
		return posterior.Posterior{}, false, fmt.Errorf("save posterior %s: %w", id, err)
	}
	return p, created, nil
}

// #endregion observe
