package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/trace"
)

// #region export

// BuildFixture turns recorded traces into a regression fixture. The expected
// results and posteriors are whatever the current code produces when the
// traces are replayed into an empty in-memory store.
func BuildFixture(traces []trace.RunTrace, fc FixtureConfig, description string) (Fixture, error) {
	cfg, err := fc.ToReplayConfig()
	if err != nil {
		return Fixture{}, err
	}
	store, err := posterior.NewBadgerStore(posterior.BadgerConfig{InMemory: true})
	if err != nil {
		return Fixture{}, fmt.Errorf("open scratch store: %w", err)
	}
	defer store.Close()

	results := Replay(store, traces, cfg)
	expected := make([]FixtureExpectedResult, len(results))
	for i, r := range results {
		if r.Action == ActionFailed {
			return Fixture{}, fmt.Errorf("trace %s: %w", r.TraceID, r.Err)
		}
		expected[i] = FixtureExpectedResult{TraceID: r.TraceID, Action: r.Action}
	}

	ps, err := store.Load()
	if err != nil {
		return Fixture{}, fmt.Errorf("load scratch posteriors: %w", err)
	}
	var posteriors []FixtureExpectedPosterior
	for _, p := range posterior.SortedByMean(ps) {
		posteriors = append(posteriors, FixtureExpectedPosterior{
			ArmID: string(p.ArmID),
			Alpha: p.Alpha,
			Beta:  p.Beta,
			Pulls: p.Pulls,
		})
	}

	return Fixture{
		Description:        description,
		Config:             fc,
		Traces:             traces,
		ExpectedResults:    expected,
		ExpectedPosteriors: posteriors,
	}, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(f Fixture, outPath string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}

// #endregion export
