// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/canectors/wrangle/internal/config"
	"github.com/canectors/wrangle/internal/errhandling"
)

// Stdout and Stderr are where the CLI prints; tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// PrintParseErrors lists definition files that could not be decoded.
func PrintParseErrors(errs []config.ParseError, verbose bool) {
	fmt.Fprintln(Stderr, "✗ Parse errors:")
	for _, err := range errs {
		fmt.Fprintf(Stderr, "  %v\n", err)
		if verbose && err.Type != "" {
			fmt.Fprintf(Stderr, "    Type: %s\n", err.Type)
		}
	}
}

// maxCompactMessage bounds validation messages outside verbose mode.
const maxCompactMessage = 80

// PrintValidationErrors lists schema violations. Errors inside a stage are
// labelled with the stage index.
func PrintValidationErrors(errs []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(Stderr, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if i, ok := err.Stage(); ok {
			path = fmt.Sprintf("stage %d (%s)", i, path)
		}

		if !verbose {
			msg := err.Message
			if len(msg) > maxCompactMessage {
				msg = msg[:maxCompactMessage-3] + "..."
			}
			fmt.Fprintf(Stderr, "  %s: %s\n", path, msg)
			continue
		}
		fmt.Fprintf(Stderr, "  %s:\n    Message: %s\n", path, err.Message)
		if err.Keyword != "" {
			fmt.Fprintf(Stderr, "    Keyword: %s\n", err.Keyword)
		}
	}
	if !quiet && !verbose {
		fmt.Fprintln(Stderr)
		fmt.Fprintln(Stderr, "Hint: Use --verbose for detailed error information")
	}
}

// PrintDefinitionErrors prints the errors of a definition that failed to
// load. Parse and validation errors carried by result are printed in detail;
// any other error (such as an invalid stage configuration) is printed as is.
func PrintDefinitionErrors(result *config.Result, err error, verbose, quiet bool) {
	if result != nil && len(result.ParseErrors) > 0 {
		PrintParseErrors(result.ParseErrors, verbose)
		return
	}
	if result != nil && len(result.ValidationErrors) > 0 {
		PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		return
	}
	if err != nil {
		fmt.Fprintf(Stderr, "✗ Invalid definition: %v\n", err)
	}
}

// PrintError prints a classified error. With verbose, the cell location and
// the error code are included when known.
func PrintError(err error, verbose bool) {
	if err == nil {
		return
	}
	cl := errhandling.ClassifyError(err)
	fmt.Fprintf(Stderr, "✗ %v\n", err)
	if !verbose {
		return
	}
	fmt.Fprintf(Stderr, "  Code: %s\n", cl.Code())
	if cl.StageIndex >= 0 {
		fmt.Fprintf(Stderr, "  Stage: %d\n", cl.StageIndex)
	}
	if cl.Column != "" {
		fmt.Fprintf(Stderr, "  Column: %s\n", cl.Column)
	}
	if cl.Row >= 0 {
		fmt.Fprintf(Stderr, "  Row: %d\n", cl.Row)
	}
}
