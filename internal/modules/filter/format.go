package filter

import (
	"github.com/canectors/wrangle/internal/logger"
	"github.com/canectors/wrangle/internal/template"
	"github.com/canectors/wrangle/pkg/pipeline"
	"github.com/canectors/wrangle/pkg/table"
)

// KindFormat is the stage type building a string column from a template.
const KindFormat = "format"

// FormatConfig represents the configuration for a format stage.
type FormatConfig struct {
	// Target is the string column to create or replace
	Target string `json:"target"`
	// Template uses {{Column}} placeholders, see internal/template
	Template string `json:"template"`
}

// ParseFormatConfig parses a raw configuration map into FormatConfig.
func ParseFormatConfig(cfg map[string]interface{}) (FormatConfig, error) {
	var c FormatConfig
	var err error
	if c.Target, err = requireString(cfg, "target"); err != nil {
		return c, err
	}
	if c.Template, err = requireString(cfg, "template"); err != nil {
		return c, err
	}
	return c, nil
}

// NewFormatFromConfig creates a format stage: a derive whose value is the
// rendered template. A missing cell without a default gives a missing result.
func NewFormatFromConfig(c FormatConfig) (pipeline.Stage, error) {
	tmpl, err := template.Compile(c.Template)
	if err != nil {
		return nil, err
	}
	logger.Debug("format stage initialized", "target", c.Target, "columns", tmpl.Columns())

	return pipeline.Derive(c.Target, tmpl.String(), func(r table.Row) (table.Value, error) {
		s, ok, err := tmpl.Render(r)
		if err != nil {
			return table.Value{}, err
		}
		if !ok {
			return table.Missing(table.KindString), nil
		}
		return table.String(s), nil
	}), nil
}
