package replay

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/gate"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
)

// #region fixture-tests

// TestFixture_Session replays the session fixture and compares each trace's
// action and the final posteriors against the recorded expectations.
func TestFixture_Session(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "session.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	config, err := f.Config.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}

	store, err := posterior.NewSQLiteStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	results := Replay(store, f.Traces, config)

	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}
	for i, expected := range f.ExpectedResults {
		actual := results[i]
		if actual.TraceID != expected.TraceID {
			t.Errorf("trace %d: expected trace_id=%s, got %s", i, expected.TraceID, actual.TraceID)
		}
		if actual.Action != expected.Action {
			t.Errorf("trace %d (%s): expected action=%s, got action=%s (reason: %s)",
				i, expected.TraceID, expected.Action, actual.Action, actual.Reason)
		}
	}

	all, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != len(f.ExpectedPosteriors) {
		t.Fatalf("expected %d posteriors, got %d", len(f.ExpectedPosteriors), len(all))
	}
	for _, want := range f.ExpectedPosteriors {
		got, ok := all[arm.ID(want.ArmID)]
		if !ok {
			t.Errorf("missing posterior %s", want.ArmID)
			continue
		}
		if got.Alpha != want.Alpha || got.Beta != want.Beta || got.Pulls != want.Pulls {
			t.Errorf("%s: expected Beta(%v,%v) pulls %d, got Beta(%v,%v) pulls %d",
				want.ArmID, want.Alpha, want.Beta, want.Pulls, got.Alpha, got.Beta, got.Pulls)
		}
	}
}

func TestFixtureConfigDefaults(t *testing.T) {
	cfg, err := (&FixtureConfig{}).ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if cfg.UpdateConfig.Gate.Phase != gate.PhaseActive {
		t.Fatalf("expected active phase by default, got %s", cfg.UpdateConfig.Gate.Phase)
	}
	if !cfg.UpdateConfig.Gate.UpdateOnBaseline {
		t.Fatal("expected baseline updates by default")
	}
}

func TestFixtureConfigOverrides(t *testing.T) {
	off := false
	fc := FixtureConfig{
		Phase:            "passive",
		UpdateOnBaseline: &off,
		CuratedPrior:     &FixturePrior{Alpha: 5, Beta: 1},
	}
	cfg, err := fc.ToReplayConfig()
	if err != nil {
		t.Fatalf("ToReplayConfig: %v", err)
	}
	if cfg.UpdateConfig.Gate.Phase != gate.PhasePassive || cfg.UpdateConfig.Gate.UpdateOnBaseline {
		t.Fatalf("overrides not applied: %+v", cfg.UpdateConfig.Gate)
	}
	if cfg.UpdateConfig.Curated.Alpha != 5 {
		t.Fatalf("expected curated alpha 5, got %v", cfg.UpdateConfig.Curated.Alpha)
	}

	if _, err := (&FixtureConfig{Phase: "warmup"}).ToReplayConfig(); err == nil {
		t.Fatal("expected error for unknown phase")
	}
}

func TestLoadFixtureMissing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

// #endregion fixture-tests
