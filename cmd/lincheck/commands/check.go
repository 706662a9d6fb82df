// Package commands implements CLI command handlers for lincheck.
package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lincheck/internal/checker"
	"lincheck/internal/config"
	"lincheck/internal/logging"
	"lincheck/internal/verifier"
)

// ErrNotLinearizable is returned with --fail-on-violation when a verdict is false.
var ErrNotLinearizable = errors.New("history is not linearizable")

// CheckCommand holds the flags of the check command.
type CheckCommand struct {
	configPath      string
	kind            string
	incremental     bool
	timing          bool
	format          string
	noColor         bool
	crossCheck      bool
	visualize       bool
	serve           bool
	port            int
	parallelism     int
	failOnViolation bool
	logLevel        string
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cc := &CheckCommand{}

	cmd := &cobra.Command{
		Use:   "check [flags] <trace>...",
		Short: "Decide whether recorded container histories are linearizable",
		Long: `Check reads one or more trace files and prints one verdict per file.

The container kind comes from the "# <kind>" header of each trace unless
--kind is given. Supported kinds: stack, queue, pqueue, deque, set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: cc.run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&cc.configPath, "config", "c", "", "config file (default .lincheck.yaml)")
	flags.StringVarP(&cc.kind, "kind", "k", "", "container kind, overrides the trace header")
	flags.BoolVar(&cc.incremental, "incremental", false, "also report the largest linearizable prefix time")
	flags.BoolVar(&cc.timing, "time", false, "also report the checking time in seconds")
	flags.StringVarP(&cc.format, "format", "f", config.DefaultFormat, "output format: bool, text, json, yaml")
	flags.BoolVar(&cc.noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&cc.crossCheck, "crosscheck", false, "re-decide small histories with porcupine")
	flags.BoolVar(&cc.visualize, "visualize", false, "write a porcupine HTML visualization next to each trace")
	flags.BoolVar(&cc.serve, "serve", false, "start a local web server for the visualizations and metrics")
	flags.IntVar(&cc.port, "port", config.DefaultPort, "port for the web server")
	flags.IntVarP(&cc.parallelism, "parallelism", "j", config.DefaultParallelism, "trace files checked at once")
	flags.BoolVar(&cc.failOnViolation, "fail-on-violation", false, "exit non-zero when a history is not linearizable")
	flags.StringVar(&cc.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")

	return cmd
}

// applyFlags overrides cfg with the flags the user set explicitly.
func (cc *CheckCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("incremental") {
		cfg.Check.Incremental = cc.incremental
	}
	if flags.Changed("time") {
		cfg.Check.Timing = cc.timing
	}
	if flags.Changed("format") {
		cfg.Output.Format = cc.format
	}
	if flags.Changed("no-color") {
		cfg.Output.Color = !cc.noColor
	}
	if flags.Changed("crosscheck") {
		cfg.Check.CrossCheck = cc.crossCheck
	}
	if flags.Changed("visualize") {
		cfg.Output.Visualize = cc.visualize
	}
	if flags.Changed("port") {
		cfg.Server.Port = cc.port
	}
	if flags.Changed("parallelism") {
		cfg.Check.Parallelism = cc.parallelism
	}
	if flags.Changed("fail-on-violation") {
		cfg.Check.FailOnViolation = cc.failOnViolation
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = cc.logLevel
	}
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return err
	}

	cc.applyFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	opts := verifier.Options{
		Incremental:       cfg.Check.Incremental,
		Timing:            cfg.Check.Timing,
		CrossCheck:        cfg.Check.CrossCheck,
		CrossCheckTimeout: cfg.Check.CrossCheckTimeout,
		CrossCheckMaxOps:  cfg.Check.CrossCheckMaxOps,
		Visualize:         cfg.Output.Visualize || cc.serve,
		Parallelism:       cfg.Check.Parallelism,
	}

	if cc.kind != "" {
		if opts.Kind, err = checker.ParseKind(cc.kind); err != nil {
			return err
		}

		opts.KindSet = true
	}

	metrics := verifier.NewMetrics()
	v := verifier.New(opts, logger, metrics)

	report, runErr := v.Run(cmd.Context(), args)

	colored := cfg.Output.Color && !color.NoColor
	if err := verifier.WriteReport(cmd.OutOrStdout(), report, cfg.Output.Format, colored); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if cc.serve {
		if err := serveReport(cmd, cfg.Server.Port, report, metrics, logger); err != nil {
			return err
		}
	}

	if cfg.Check.FailOnViolation && !report.AllLinearizable() {
		return ErrNotLinearizable
	}

	return nil
}

func serveReport(cmd *cobra.Command, port int, report *verifier.Report, metrics *verifier.Metrics, logger *slog.Logger) error {
	paths := report.HTMLPaths()
	if len(paths) == 0 {
		logger.Warn("no visualization to serve; histories may exceed the cross-check limit")
	}

	if err := verifier.StartSimpleServer(cmd.Context(), port, paths, metrics, cmd.ErrOrStderr(), logger); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
