package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-context/internal/learning"
	"github.com/danielpatrickdp/adaptive-context/internal/replay"
)

var (
	exportLast int
	exportOut  string
)

var replayExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent traces as a replay fixture",
	Long: `Export writes the last N traces to a JSON fixture together with the
actions and posteriors the current code produces for them. Check the fixture
in and run "ctxlearn replay --fixture" to catch behavior changes.`,
	Args: cobra.NoArgs,
	RunE: runReplayExport,
}

func init() {
	replayCmd.AddCommand(replayExportCmd)
	replayExportCmd.Flags().IntVar(&exportLast, "last", 20, "number of most recent traces to export")
	replayExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output fixture JSON path")
	_ = replayExportCmd.MarkFlagRequired("out")
}

func runReplayExport(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	traces, err := b.traces.Recent(exportLast)
	if err != nil {
		return fmt.Errorf("%w: read traces: %w", learning.ErrBackendUnreachable, err)
	}
	if len(traces) == 0 {
		return fmt.Errorf("no traces found")
	}

	updateOnBaseline := b.cfg.Learning.UpdateOnBaseline
	fc := replay.FixtureConfig{
		Phase:            "active",
		UpdateOnBaseline: &updateOnBaseline,
		CuratedPrior:     &replay.FixturePrior{Alpha: b.cfg.Priors.Curated.Alpha, Beta: b.cfg.Priors.Curated.Beta},
		LearnedPrior:     &replay.FixturePrior{Alpha: b.cfg.Priors.Learned.Alpha, Beta: b.cfg.Priors.Learned.Beta},
	}
	f, err := replay.BuildFixture(traces, fc, fmt.Sprintf("Trace log export: last %d traces", len(traces)))
	if err != nil {
		return err
	}
	if err := replay.WriteFixture(f, exportOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote fixture to %s (%d traces, %d posteriors)\n",
		exportOut, len(f.Traces), len(f.ExpectedPosteriors))
	return nil
}
