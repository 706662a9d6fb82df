package commands

import "github.com/spf13/cobra"

// NewRootCommand assembles the lincheck command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "lincheck",
		Short: "Distinct-value linearizability checking for concurrent containers",
		Long: `Lincheck decides in polynomial time whether a recorded history of a
stack, queue, priority queue, deque or set is linearizable, assuming every
value is added at most once.

Commands:
  check     Check trace files
  gen       Generate synthetic traces
  merge     Combine traces of one container`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewCheckCommand())
	root.AddCommand(NewGenCommand())
	root.AddCommand(NewMergeCommand())
	root.AddCommand(NewVersionCommand())

	return root
}
