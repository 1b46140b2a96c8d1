package replay

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

func newStore(t *testing.T) *posterior.SQLiteStore {
	t.Helper()
	s, err := posterior.NewSQLiteStore(filepath.Join(t.TempDir(), "harness.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func included(id string, ref bool) trace.ArmOutcome {
	return trace.ArmOutcome{ArmID: arm.ID(id), Included: true, Referenced: ref}
}

func TestReplayEmpty(t *testing.T) {
	results, summary := Run(newStore(t), nil, DefaultReplayConfig())
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if summary.TotalTraces != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestReplayPassiveGatesEverything(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.UpdateConfig.Gate.Phase = gate.PhasePassive
	traces := []trace.RunTrace{
		{TraceID: "a", Arms: []trace.ArmOutcome{included("tool:exec:bash", true)}},
		{TraceID: "b", Arms: []trace.ArmOutcome{included("tool:exec:bash", false)}},
	}

	_, summary := Run(newStore(t), traces, cfg)
	if summary.Gated != 2 || summary.Applied != 0 {
		t.Fatalf("expected 2 gated, got %+v", summary)
	}
}

func TestReplayBaselineExclusion(t *testing.T) {
	cfg := DefaultReplayConfig()
	cfg.UpdateConfig.Gate.UpdateOnBaseline = false
	traces := []trace.RunTrace{
		{TraceID: "base", IsBaseline: true, Arms: []trace.ArmOutcome{included("tool:exec:bash", true)}},
		{TraceID: "sel", Arms: []trace.ArmOutcome{included("tool:exec:bash", true)}},
	}

	results, summary := Run(newStore(t), traces, cfg)
	if results[0].Action != ActionGated {
		t.Fatalf("expected baseline trace gated, got %s", results[0].Action)
	}
	if results[0].GateDecision.VetoSignals[0].Type != gate.VetoBaseline {
		t.Fatalf("expected baseline veto, got %+v", results[0].GateDecision.VetoSignals)
	}
	if summary.Applied != 1 || summary.Created != 1 {
		t.Fatalf("expected one applied trace creating one posterior, got %+v", summary)
	}
}

func TestReplayDoubleCounts(t *testing.T) {
	store := newStore(t)
	tr := trace.RunTrace{TraceID: "x", Arms: []trace.ArmOutcome{included("skill:skill:github", true)}}

	_, summary := Run(store, []trace.RunTrace{tr, tr}, DefaultReplayConfig())
	if summary.Created != 1 || summary.Updated != 1 {
		t.Fatalf("expected 1 created + 1 updated, got %+v", summary)
	}
	p, err := store.Get("skill:skill:github")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Pulls != 2 {
		t.Fatalf("expected 2 pulls, got %d", p.Pulls)
	}
}

type flakyStore struct {
	posterior.Store
	failFor arm.ID
}

func (f flakyStore) Get(id arm.ID) (posterior.Posterior, error) {
	if id == f.failFor {
		return posterior.Posterior{}, errors.New("disk I/O error")
	}
	return f.Store.Get(id)
}

func TestReplayContinuesAfterFailure(t *testing.T) {
	store := flakyStore{Store: newStore(t), failFor: "tool:exec:broken"}
	traces := []trace.RunTrace{
		{TraceID: "bad", Arms: []trace.ArmOutcome{included("tool:exec:broken", true)}},
		{TraceID: "good", Arms: []trace.ArmOutcome{included("tool:exec:bash", true)}},
	}

	results, summary := Run(store, traces, DefaultReplayConfig())
	if results[0].Action != ActionFailed || results[0].Err == nil {
		t.Fatalf("expected first trace to fail, got %+v", results[0])
	}
	if results[1].Action != ActionApply {
		t.Fatalf("expected second trace applied, got %+v", results[1])
	}
	if summary.Failed != 1 || summary.Applied != 1 || summary.TotalTraces != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
