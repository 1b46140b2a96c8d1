package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-context/internal/report"
)

var (
	posteriorsLimit int
	posteriorsJSON  bool
)

var posteriorsCmd = &cobra.Command{
	Use:   "posteriors",
	Short: "List arm posteriors by descending mean",
	Args:  cobra.NoArgs,
	RunE:  runPosteriors,
}

func init() {
	rootCmd.AddCommand(posteriorsCmd)
	posteriorsCmd.Flags().IntVarP(&posteriorsLimit, "limit", "n", 20, "show the N best arms (0 = all)")
	posteriorsCmd.Flags().BoolVar(&posteriorsJSON, "json", false, "output as JSON instead of a table")
}

func runPosteriors(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	views, err := b.learner().Posteriors(posteriorsLimit)
	if err != nil {
		return err
	}
	if posteriorsJSON {
		return writeJSON(cmd.OutOrStdout(), views)
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no posteriors recorded")
		return nil
	}
	printPosteriorTable(cmd.OutOrStdout(), views)
	return nil
}

func printPosteriorTable(w io.Writer, views []report.PosteriorView) {
	fmt.Fprintf(w, "%-44s  %6s  %7s  %7s  %5s  %s\n", "Arm", "Mean", "Alpha", "Beta", "Pulls", "Confidence")
	fmt.Fprintf(w, "%-44s+-%6s+-%7s+-%7s+-%5s+-%s\n",
		"--------------------------------------------", "------", "-------", "-------", "-----", "----------")
	for _, v := range views {
		fmt.Fprintf(w, "%-44s  %6.3f  %7.2f  %7.2f  %5d  %s\n",
			v.ArmID, v.Mean, v.Alpha, v.Beta, v.Pulls, v.Confidence)
	}
}
