package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-context/internal/arm"
	"github.com/danielpatrickdp/adaptive-context/internal/config"
	"github.com/danielpatrickdp/adaptive-context/internal/learning"
	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/replay"
	"github.com/danielpatrickdp/adaptive-context/internal/update"
)

var (
	replaySince   string
	replayLimit   int
	replayFixture string
	replayDryRun  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay recorded traces into the posterior store",
	Long: `Replay applies recorded traces to the posteriors in timestamp order, as if
they were observed in the active phase. Replaying a trace that was already
applied counts it twice, so use --dry-run to preview.

With --fixture the traces, config and expected outcomes come from a JSON
fixture and are replayed into an in-memory store; the command fails if any
outcome differs.`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replaySince, "since", "", "only traces at or after this time (RFC3339, 2006-01-02, or a duration like 24h)")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "replay at most N traces (0 = all)")
	replayCmd.Flags().StringVar(&replayFixture, "fixture", "", "replay a JSON fixture instead of the trace log")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "replay into an empty in-memory store")
}

func runReplay(cmd *cobra.Command, args []string) error {
	if replayFixture != "" {
		return runFixtureReplay(cmd.OutOrStdout(), replayFixture)
	}

	since, err := parseSince(replaySince, time.Now())
	if err != nil {
		return err
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	traces, err := b.traces.List(since, replayLimit)
	if err != nil {
		return fmt.Errorf("%w: list traces: %w", learning.ErrBackendUnreachable, err)
	}
	out := cmd.OutOrStdout()
	if len(traces) == 0 {
		fmt.Fprintln(out, "no traces found")
		return nil
	}

	store := b.store
	if replayDryRun {
		mem, err := posterior.NewBadgerStore(posterior.BadgerConfig{InMemory: true})
		if err != nil {
			return err
		}
		defer mem.Close()
		store = mem
	}

	results, summary := replay.Run(store, traces, replayConfigFrom(b.cfg))
	printReplay(out, results)
	fmt.Fprintf(out, "\nSummary: %d total, %d applied, %d gated, %d failed (%d updated, %d created)\n",
		summary.TotalTraces, summary.Applied, summary.Gated, summary.Failed, summary.Updated, summary.Created)
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d trace(s) failed to apply", learning.ErrBackendUnreachable, summary.Failed)
	}
	return nil
}

// replayConfigFrom keeps the configured priors and baseline policy but always
// replays in the active phase.
func replayConfigFrom(cfg *config.Config) replay.ReplayConfig {
	rc := replay.DefaultReplayConfig()
	rc.UpdateConfig.Gate.UpdateOnBaseline = cfg.Learning.UpdateOnBaseline
	rc.UpdateConfig.Curated = update.Prior{Alpha: cfg.Priors.Curated.Alpha, Beta: cfg.Priors.Curated.Beta}
	rc.UpdateConfig.Learned = update.Prior{Alpha: cfg.Priors.Learned.Alpha, Beta: cfg.Priors.Learned.Beta}
	return rc
}

func printReplay(w io.Writer, results []replay.ReplayResult) {
	fmt.Fprintf(w, "%-38s| %-8s| %7s| %7s| %s\n", "Trace", "Action", "Updated", "Created", "Reason")
	fmt.Fprintf(w, "%-38s+%-9s+%-8s+%-8s+%s\n",
		"--------------------------------------", "---------", "--------", "--------", "------")
	for _, r := range results {
		reason := r.Reason
		if r.Err != nil {
			reason = r.Err.Error()
		}
		fmt.Fprintf(w, "%-38s| %-8s| %7d| %7d| %s\n", r.TraceID, r.Action, r.Updated, r.Created, reason)
	}
}

// #region fixture-mode

func runFixtureReplay(w io.Writer, path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	cfg, err := f.Config.ToReplayConfig()
	if err != nil {
		return err
	}

	store, err := posterior.NewBadgerStore(posterior.BadgerConfig{InMemory: true})
	if err != nil {
		return err
	}
	defer store.Close()

	results := replay.Replay(store, f.Traces, cfg)

	fmt.Fprintf(w, "%-24s| %-10s| %-10s| %s\n", "Trace", "Expected", "Replayed", "Match")
	fmt.Fprintf(w, "%-24s+%-11s+%-11s+%s\n", "------------------------", "-----------", "-----------", "------")

	checks, diverge := 0, 0
	for i, exp := range f.ExpectedResults {
		got := "(missing)"
		traceID := exp.TraceID
		if i < len(results) {
			got = results[i].Action
			traceID = results[i].TraceID
		}
		match := "OK"
		if got != exp.Action {
			match = "DIFF"
			diverge++
		}
		checks++
		fmt.Fprintf(w, "%-24s| %-10s| %-10s| %s\n", traceID, exp.Action, got, match)
	}

	if len(f.ExpectedPosteriors) > 0 {
		fmt.Fprintln(w)
		for _, exp := range f.ExpectedPosteriors {
			checks++
			p, err := store.Get(arm.ID(exp.ArmID))
			switch {
			case errors.Is(err, posterior.ErrNotFound):
				diverge++
				fmt.Fprintf(w, "%-40s missing  DIFF\n", exp.ArmID)
				continue
			case err != nil:
				return err
			}
			match := "OK"
			if p.Alpha != exp.Alpha || p.Beta != exp.Beta || p.Pulls != exp.Pulls {
				match = "DIFF"
				diverge++
			}
			fmt.Fprintf(w, "%-40s alpha=%.0f beta=%.0f pulls=%d  %s\n", exp.ArmID, p.Alpha, p.Beta, p.Pulls, match)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d checks, %d match, %d diverge\n", checks, checks-diverge, diverge)
	if diverge > 0 {
		return fmt.Errorf("replay diverged from fixture: %d of %d checks differ", diverge, checks)
	}
	return nil
}

// #endregion fixture-mode

// parseSince accepts an RFC3339 timestamp, a date, or a duration back from now.
// Empty means no lower bound.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --since %q: want RFC3339, YYYY-MM-DD or a duration", s)
}
