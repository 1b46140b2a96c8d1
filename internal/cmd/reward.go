package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rewardCmd = &cobra.Command{
	Use:   "reward <arm> <0|1>",
	Short: "Apply an explicit reward to an arm",
	Long: `Reward applies a 0 or 1 outcome to an arm. The arm may be a full id
(tool:exec:bash) or a short label (bash) matched against known arms.`,
	Args: cobra.ExactArgs(2),
	RunE: runReward,
}

func init() {
	rootCmd.AddCommand(rewardCmd)
}

func runReward(cmd *cobra.Command, args []string) error {
	reward, err := parseReward(args[1])
	if err != nil {
		return err
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.learner().Reward(cmd.Context(), args[0], reward)
	if err != nil {
		return err
	}
	p := res.Posterior
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: alpha=%.2f beta=%.2f pulls=%d mean=%.3f\n", res.ArmID, p.Alpha, p.Beta, p.Pulls, p.Mean())
	if res.Oracle != nil {
		fmt.Fprintf(out, "  oracle: alpha=%.2f beta=%.2f pulls=%d mean=%.3f\n",
			res.Oracle.Alpha, res.Oracle.Beta, res.Oracle.Pulls, res.Oracle.Mean)
	}
	return nil
}

func parseReward(s string) (float64, error) {
	switch s {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	}
	return 0, fmt.Errorf("reward must be 0 or 1, got %q", s)
}
