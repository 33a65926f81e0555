package cli

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/canectors/wrangle/internal/arrowconv"
	"github.com/canectors/wrangle/internal/textio"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/table"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
	DryRun  bool
	// PreviewRows is the number of result rows printed when the pipeline has
	// no output; 0 disables the preview
	PreviewRows int
}

// PrintExecutionResult displays the pipeline execution result. When the
// run succeeded and result is not nil, the first rows of tbl are previewed.
func PrintExecutionResult(result *definition.ExecutionResult, tbl *table.Table, err error, opts OutputOptions) {
	if result == nil {
		fmt.Fprintln(Stderr, "✗ No execution result available")
		return
	}

	if err != nil {
		fmt.Fprintln(Stderr, "✗ Pipeline execution failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(Stderr, "  Phase: %s\n", result.Error.Module)
			}
			fmt.Fprintf(Stderr, "  Error: %s\n", result.Error.Message)
			if opts.Verbose && result.Error.Category != "" {
				fmt.Fprintf(Stderr, "  Category: %s\n", result.Error.Category)
			}
		}
		return
	}

	if opts.Quiet {
		return
	}

	fmt.Fprintln(Stdout, "✓ Pipeline executed successfully")
	fmt.Fprintf(Stdout, "  Rows: %d in, %d out\n", result.RowsIn, result.RowsOut)
	if result.RowsWritten > 0 {
		fmt.Fprintf(Stdout, "  Rows written: %d\n", result.RowsWritten)
	}
	if opts.Verbose {
		fmt.Fprintf(Stdout, "  Columns: %s\n", strings.Join(result.Columns, ", "))
		fmt.Fprintf(Stdout, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
		for _, s := range result.Stages {
			fmt.Fprintf(Stdout, "    [%d] %s: %d rows (%v)\n", s.Index, s.Name, s.Rows, s.Duration)
		}
	}

	if opts.DryRun && result.DryRunPreview != nil {
		PrintDryRunPreview(result.DryRunPreview, opts.Verbose)
	}
	if tbl != nil && opts.PreviewRows > 0 {
		fmt.Fprintln(Stdout)
		PrintTable(tbl, opts.PreviewRows)
	}
}

// PrintDryRunPreview displays what the output would have written.
func PrintDryRunPreview(preview *definition.OutputPreview, verbose bool) {
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, "📋 Dry-Run Preview (what would have been written):")
	fmt.Fprintf(Stdout, "  Destination: %s\n", preview.Destination)
	fmt.Fprintf(Stdout, "  Rows: %d\n", preview.RowCount)
	if preview.Body != "" {
		printBodyPreview(preview.Body, verbose)
	}
	fmt.Fprintln(Stdout)
	fmt.Fprintln(Stdout, "ℹ️  Nothing was written (dry-run mode)")
}

// PrintTable prints the first n rows of t as tab-separated text, followed by
// a count of the rows left out.
func PrintTable(t *table.Table, n int) {
	head := t.Head(n)
	if err := textio.Write(Stdout, head, '\t'); err != nil {
		fmt.Fprintf(Stderr, "✗ Cannot print table: %v\n", err)
		return
	}
	if rest := t.Len() - head.Len(); rest > 0 {
		fmt.Fprintf(Stdout, "... (%d more rows)\n", rest)
	}
}

// printBodyPreview displays the rendered output, truncated unless verbose.
func printBodyPreview(body string, verbose bool) {
	const maxLinesCompact = 10
	lines := splitLines(body)

	if verbose || len(lines) <= maxLinesCompact {
		fmt.Fprintln(Stdout, "  Body:")
		printIndented(lines, "    ")
		return
	}

	fmt.Fprintln(Stdout, "  Body (truncated, use --verbose for full):")
	printIndented(lines[:maxLinesCompact], "    ")
	fmt.Fprintf(Stdout, "    ... (%d more lines)\n", len(lines)-maxLinesCompact)
}

func printIndented(lines []string, indent string) {
	for _, line := range lines {
		fmt.Fprintf(Stdout, "%s%s\n", indent, line)
	}
}

// splitLines splits a string into lines, dropping a trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// PrintDefinitionSummary prints the name and shape of a loaded definition.
func PrintDefinitionSummary(def *definition.Pipeline) {
	if def == nil {
		return
	}
	fmt.Fprintf(Stdout, "  Pipeline: %s\n", def.Name)
	if def.Version != "" {
		fmt.Fprintf(Stdout, "  Version: %s\n", def.Version)
	}
	if def.Source != nil {
		fmt.Fprintf(Stdout, "  Source: %s\n", def.Source.Type)
	}
	fmt.Fprintf(Stdout, "  Stages: %d\n", len(def.Stages))
	if def.Output != nil {
		fmt.Fprintf(Stdout, "  Output: %s\n", def.Output.Type)
	}
}

// PrintStageTrace prints the table produced by one stage, for --trace.
func PrintStageTrace(index int, name string, t *table.Table, rows int) {
	fmt.Fprintf(Stdout, "── [%d] %s: %d rows × %d columns\n", index, name, t.Len(), len(t.Names()))
	PrintTable(t, rows)
	fmt.Fprintln(Stdout)
}

// PrintSchema prints one line per field: name, Arrow type and nullability.
func PrintSchema(schema *arrow.Schema) {
	for _, f := range schema.Fields() {
		nullable := ""
		if f.Nullable {
			nullable = " (nullable)"
		}
		levels := ""
		if v, ok := f.Metadata.GetValue(arrowconv.MetaLevels); ok {
			levels = fmt.Sprintf(" levels=[%s]", strings.Join(arrowconv.SplitLevels(v), ", "))
		}
		fmt.Fprintf(Stdout, "%s: %s%s%s\n", f.Name, f.Type, nullable, levels)
	}
}
