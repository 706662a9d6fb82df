package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lincheck/internal/verifier"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "merge -o <out> <trace>...",
		Short: "Combine traces recorded against the same container",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := verifier.MergeHistories(args, output)
			if err != nil {
				return fmt.Errorf("error merging histories: %w", err)
			}

			msg := fmt.Sprintf("🧩 Merged %d %s histories into: %s", len(args), kind, output)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint(msg))

			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "merged-history.txt", "merged trace path")

	return cmd
}
