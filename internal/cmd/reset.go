package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset [arm-id]",
	Short: "Reset one arm, or every arm, back to Beta(1,1)",
	Long: `Reset sets the posterior of the given arm back to the uniform Beta(1,1) with
zero pulls. Without an arm id every stored posterior is reset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	var armID string
	if len(args) == 1 {
		armID = args[0]
	}
	n, err := b.learner().Reset(armID)
	if err != nil {
		return err
	}
	target := "all arms"
	if armID != "" {
		target = armID
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reset %d posterior(s) (%s)\n", n, target)
	return nil
}
