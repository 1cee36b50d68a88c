package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/zjy-dev/ccover/internal/build"
	"github.com/zjy-dev/ccover/internal/config"
	"github.com/zjy-dev/ccover/internal/exec"
	"github.com/zjy-dev/ccover/internal/logger"
	"github.com/zjy-dev/ccover/internal/pipeline"
	"github.com/zjy-dev/ccover/internal/prompt"
	"github.com/zjy-dev/ccover/internal/report"
)

type runFlags struct {
	configPath    string
	logLevel      string
	color         string
	threshold     float64
	keepGcov      bool
	isolate       bool
	showUncovered bool
}

// NewRunCommand creates the "run" subcommand.
func NewRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <source_file> <test_file>",
		Short: "Measure the line coverage of a source file.",
		Long: `Measure the line coverage of a C source file exercised by a test file.

This command:
  1. Compiles the source file and links it with the test file under
     coverage instrumentation
  2. If linking fails, asks for extra files to link and retries once
  3. Runs the test binary
  4. Annotates the source with gcov and reports the coverage
  5. Removes every generated artifact

Configuration:
  Defaults are read from ccover.yaml in the current directory or configs/.
  CCOVER_* environment variables override the file, flags override both.

Examples:
  ccover run stack.c stack_test.c

  # Keep the annotated stack.c.gcov for inspection
  ccover run stack.c stack_test.c --keep-gcov

  # Generate artifacts in a private directory
  ccover run stack.c stack_test.c --isolate --show-uncovered`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyFlags(cmd, cfg, flags)
			if err := config.Validate(cfg); err != nil {
				return err
			}

			logger.SetLevel(cfg.LogLevel)
			if report.ColorMode(cfg.Color) == report.ColorNever {
				logger.SetColorEnable(false)
			}

			return runCoverage(cmd, cfg, build.SourceUnit{Source: args[0], Test: args[1]})
		},
	}

	// Placeholder defaults; the effective defaults come from config.
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to the config file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.color, "color", "auto", "Colored output (auto, always, never)")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", 80, "Coverage percentage shown as passing")
	cmd.Flags().BoolVar(&flags.keepGcov, "keep-gcov", false, "Keep the annotated <source>.gcov report")
	cmd.Flags().BoolVar(&flags.isolate, "isolate", false, "Generate artifacts in a per-run directory")
	cmd.Flags().BoolVar(&flags.showUncovered, "show-uncovered", false, "List the uncovered line numbers")

	return cmd
}

// applyFlags overrides cfg with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("color") {
		cfg.Color = flags.color
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = flags.threshold
	}
	if cmd.Flags().Changed("keep-gcov") {
		cfg.KeepGcov = flags.keepGcov
	}
	if cmd.Flags().Changed("isolate") {
		cfg.Isolate = flags.isolate
	}
	if cmd.Flags().Changed("show-uncovered") {
		cfg.ShowUncovered = flags.showUncovered
	}
}

func runCoverage(cmd *cobra.Command, cfg *config.Config, u build.SourceUnit) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Deps{
		Fs:       afero.NewOsFs(),
		Executor: exec.NewCommandExecutor(),
		Prompter: prompt.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()),
		Reporter: report.NewTerminal(cmd.OutOrStdout(), report.Options{
			Threshold:     cfg.Threshold,
			ShowUncovered: cfg.ShowUncovered,
			Color:         report.ColorMode(cfg.Color),
		}),
	}, pipeline.Settings{
		CompilerPath:  cfg.Compiler.Path,
		CFlags:        cfg.Compiler.CFlags,
		CoverageFlags: cfg.Compiler.CoverageFlags,
		GcovPath:      cfg.Gcov.Path,
		Isolate:       cfg.Isolate,
	})

	_, err := p.Run(ctx, u, pipeline.Options{KeepReport: cfg.KeepGcov})
	return err
}
