package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-context/internal/posterior"
	"github.com/danielpatrickdp/adaptive-context/internal/report"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize posteriors, traces and baseline health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON instead of text")
}

func runStatus(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	st, err := b.learner().Status()
	if err != nil {
		return err
	}
	if statusJSON {
		return writeJSON(cmd.OutOrStdout(), st)
	}
	printStatus(cmd.OutOrStdout(), st)
	return nil
}

func printStatus(w io.Writer, st report.Status) {
	oracleMode := "local fallback"
	if st.OracleConfigured {
		oracleMode = "remote"
	}
	tr := st.Traces

	fmt.Fprintf(w, "Learner:     %s (phase %s, oracle %s)\n", st.Learner, st.Phase, oracleMode)
	fmt.Fprintf(w, "Traces:      %d (baseline %d, selected %d), %d distinct arms\n",
		tr.TraceCount, tr.BaselineRuns, tr.SelectedRuns, tr.ArmCount)
	if tr.TraceCount > 0 {
		fmt.Fprintf(w, "Window:      %s .. %s\n",
			tr.FirstTimestamp.Format("2006-01-02 15:04"), tr.LastTimestamp.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "Tokens:      %d total, baseline avg %.0f, selected avg %.0f, savings %.1f%%\n",
		tr.TotalTokens, tr.BaselineAvgTokens, tr.SelectedAvgTokens, tr.TokenSavingsPercent)
	fmt.Fprintf(w, "Posteriors:  %d (high %d, medium %d, low %d)\n", st.PosteriorCount,
		st.Confidence[posterior.ConfidenceHigh], st.Confidence[posterior.ConfidenceMedium], st.Confidence[posterior.ConfidenceLow])
	fmt.Fprintf(w, "Baseline:    rate %.2f (recommended %.2f)\n", st.BaselineRate, st.RecommendedBaselineRate)

	if len(st.Top) > 0 {
		fmt.Fprintln(w, "\nTop arms:")
		printPosteriorTable(w, st.Top)
	}

	fmt.Fprintln(w, "\nChecks:")
	for _, c := range st.Checks {
		mark := "PASS"
		if !c.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  %-4s  %-18s %8.2f  %s\n", mark, c.Name, c.Value, c.Detail)
	}
	health := "healthy"
	if !st.Healthy {
		health = "unhealthy"
	}
	fmt.Fprintf(w, "\nStatus: %s (%s)\n", health, st.Reason)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
