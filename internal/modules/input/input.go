// Package input provides implementations for source modules.
// A source module produces the table a pipeline starts from.
package input

import (
	"context"
	"errors"

	"github.com/canectors/wrangle/pkg/table"
)

// Error types shared by source modules
var (
	ErrNilConfig   = errors.New("module configuration is nil")
	ErrMissingPath = errors.New("path is required in source configuration")
)

// Module represents a source module that produces a table.
type Module interface {
	// Fetch loads the table.
	// The context can be used to cancel long-running operations.
	Fetch(ctx context.Context) (*table.Table, error)
	// Describe returns a short human-readable description of the source,
	// used in logs and execution results.
	Describe() string
	// Close releases any resources held by the module.
	Close() error
}
