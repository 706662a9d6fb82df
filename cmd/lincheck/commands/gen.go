package commands

import (
	"github.com/spf13/cobra"

	"lincheck/internal/checker"
	"lincheck/internal/histgen"
	"lincheck/internal/trace"
)

// NewGenCommand creates the gen command.
func NewGenCommand() *cobra.Command {
	var (
		kind   string
		cfg    histgen.Config
		output string
	)

	cmd := &cobra.Command{
		Use:   "gen --kind <kind> -n <ops> [out]",
		Short: "Generate a synthetic container history",
		Long: `Gen writes a random history of the given container kind. Unless
--non-linearizable is set the history is linearizable. Without [out] the trace
goes to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := checker.ParseKind(kind)
			if err != nil {
				return err
			}

			cfg.Kind = k

			h, err := histgen.Generate(cfg)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				output = args[0]
			}

			if output == "" || output == "-" {
				return trace.Write(cmd.OutOrStdout(), k, h)
			}

			return trace.WriteFile(output, k, h)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&kind, "kind", "k", "", "container kind: stack, queue, pqueue, deque, set")
	flags.IntVarP(&cfg.Ops, "ops", "n", 1000, "number of operations")
	flags.Uint64Var(&cfg.Seed, "seed", 1, "random seed")
	flags.Int64Var(&cfg.MaxRadius, "max-radius", histgen.DefaultMaxRadius, "max distance of an interval end from its point; negative for sequential")
	flags.Int64Var(&cfg.MaxDelta, "max-delta", histgen.DefaultMaxDelta, "max gap between consecutive points")
	flags.IntVar(&cfg.MaxSize, "max-size", histgen.DefaultMaxSize, "max number of elements held at once")
	flags.BoolVar(&cfg.NonLinearizable, "non-linearizable", false, "prepend a fixed violation")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}
