// Package main provides the CLI entry point for wrangle.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/canectors/wrangle/internal/arrowconv"
	"github.com/canectors/wrangle/internal/cli"
	"github.com/canectors/wrangle/internal/config"
	"github.com/canectors/wrangle/internal/errhandling"
	"github.com/canectors/wrangle/internal/factory"
	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/runtime"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// Exit codes
const (
	ExitSuccess         = errhandling.ExitSuccess
	ExitValidationError = errhandling.ExitConfigError
	ExitParseError      = errhandling.ExitParseError
	ExitRuntimeError    = errhandling.ExitRuntimeError
	ExitDataError       = errhandling.ExitDataError
)

const defaultLimit = 10

var (
	// Global flags
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	// Run command flags
	dryRun bool
	trace  bool
	limit  int

	// exitCode is set by the command that ran
	exitCode int

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string) int {
	exitCode = ExitSuccess
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(cli.Stdout)
	root.SetErr(cli.Stderr)
	defer logger.CloseLogFile()
	if err := root.Execute(); err != nil {
		return ExitRuntimeError
	}
	return exitCode
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wrangle",
		Short: "wrangle - declarative table wrangling",
		Long: `wrangle loads a delimited text table, applies a pipeline of
transformations (parse, derive, filter, select, sort, ...) and writes
or previews the result.

Pipelines are defined in JSON or YAML files.

Examples:
  # Validate a pipeline definition
  wrangle validate bmi.yaml

  # Run a pipeline and show every intermediate table
  wrangle run --trace bmi.yaml

  # Print the Arrow schema of the result
  wrangle schema bmi.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return configureLogging()
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <pipeline-file>",
		Short: "Validate a pipeline definition file",
		Long: `Validate a pipeline definition against the schema and check that
every stage configuration is usable.

Exit codes:
  0 - Definition is valid
  1 - Validation errors (schema violations, invalid stage settings)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		Run:  runValidate,
	}

	runCmd := &cobra.Command{
		Use:   "run <pipeline-file>",
		Short: "Run a pipeline definition",
		Long: `Run the pipeline: load the source table, apply the stages in order
and write the result to the output. Without an output, the first rows of
the result are printed.

Exit codes:
  0 - Pipeline executed successfully
  1 - Invalid definition
  2 - Parse errors in the definition file
  3 - Runtime errors (I/O, cancellation)
  4 - Data errors (schema, unknown column, parse, type)`,
		Args: cobra.ExactArgs(1),
		Run:  runPipeline,
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the output instead of writing it")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Print the table produced by every stage")
	runCmd.Flags().IntVarP(&limit, "limit", "n", defaultLimit, "Number of rows shown in previews and traces")

	schemaCmd := &cobra.Command{
		Use:   "schema <pipeline-file>",
		Short: "Print the Arrow schema of a pipeline's result",
		Long: `Run the pipeline without writing its output and print the Arrow
schema of the result: column names, Arrow types and nullability.`,
		Args: cobra.ExactArgs(1),
		Run:  runSchema,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run:   runVersion,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json or human")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")

	rootCmd.AddCommand(validateCmd, runCmd, schemaCmd, versionCmd)
	return rootCmd
}

// configureLogging applies the global logging flags.
func configureLogging() error {
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelError
	}
	if logFile != "" {
		return logger.SetLogFile(logFile, level, format)
	}
	logger.SetLevelAndFormat(level, format)
	return nil
}

// loadDefinition loads path, printing errors and setting exitCode on failure.
func loadDefinition(path string) (*definition.Pipeline, *config.Result, bool) {
	def, result, err := config.LoadDefinition(path)
	if err != nil {
		cli.PrintDefinitionErrors(result, err, verbose, quiet)
		if result != nil && len(result.ParseErrors) > 0 {
			exitCode = ExitParseError
		} else {
			exitCode = ExitValidationError
		}
		return nil, result, false
	}
	return def, result, true
}

// createModules builds the modules of def, printing errors on failure.
func createModules(def *definition.Pipeline) (*factory.Modules, bool) {
	mods, err := factory.CreateModules(def)
	if err != nil {
		cli.PrintError(err, verbose)
		exitCode = errhandling.ExitCode(err)
		return nil, false
	}
	return mods, true
}

func runValidate(_ *cobra.Command, args []string) {
	path := args[0]
	if !quiet {
		fmt.Fprintf(cli.Stdout, "Validating pipeline definition: %s\n", path)
	}

	def, result, ok := loadDefinition(path)
	if !ok {
		return
	}
	mods, ok := createModules(def)
	if !ok {
		return
	}
	_ = mods.Close()

	if !quiet {
		fmt.Fprintf(cli.Stdout, "✓ Pipeline definition is valid (format: %s)\n", result.Format)
		if verbose {
			cli.PrintDefinitionSummary(def)
		}
	}
}

func runPipeline(_ *cobra.Command, args []string) {
	def, _, ok := loadDefinition(args[0])
	if !ok {
		return
	}
	if verbose {
		cli.PrintDefinitionSummary(def)
	}
	mods, ok := createModules(def)
	if !ok {
		return
	}

	executor := runtime.NewExecutorWithModules(mods.Input, mods.Pipeline, mods.Output, dryRun)
	executor.SetPreviewRows(limit)
	if trace {
		executor.SetObserver(func(i int, s pipeline.Stage, out *table.Table) {
			cli.PrintStageTrace(i, s.Name(), out, limit)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	tbl, result, err := executor.Run(ctx, def)

	previewRows := 0
	if def.Output == nil {
		previewRows = limit
	}
	cli.PrintExecutionResult(result, tbl, err, cli.OutputOptions{
		Verbose:     verbose,
		Quiet:       quiet,
		DryRun:      dryRun,
		PreviewRows: previewRows,
	})
	exitCode = errhandling.ExitCode(err)
}

func runSchema(_ *cobra.Command, args []string) {
	def, _, ok := loadDefinition(args[0])
	if !ok {
		return
	}
	mods, ok := createModules(def)
	if !ok {
		return
	}
	if mods.Output != nil {
		_ = mods.Output.Close()
	}

	executor := runtime.NewExecutorWithModules(mods.Input, mods.Pipeline, nil, false)
	tbl, _, err := executor.Run(context.Background(), def)
	if err != nil {
		cli.PrintError(err, verbose)
		exitCode = errhandling.ExitCode(err)
		return
	}

	schema, err := arrowconv.Schema(tbl)
	if err != nil {
		cli.PrintError(err, verbose)
		exitCode = errhandling.ExitCode(err)
		return
	}
	cli.PrintSchema(schema)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Fprintf(cli.Stdout, "Version: %s\n", version)
	fmt.Fprintf(cli.Stdout, "Commit: %s\n", commit)
	fmt.Fprintf(cli.Stdout, "Build Date: %s\n", buildDate)
}
