package filter

import (
	"fmt"

	"github.com/canectors/wrangle/pkg/parse"
	"github.com/canectors/wrangle/pkg/pipeline"
)

// Parser names accepted by parse stages.
const (
	ParserBool        = "bool"
	ParserNumeric     = "numeric"
	ParserCategorical = "categorical"
	ParserString      = "string"
)

// ParseStageConfig represents the configuration for a parse stage.
type ParseStageConfig struct {
	// Column is the string column to parse
	Column string `json:"column"`
	// Target receives the parsed values; empty replaces Column
	Target string `json:"target,omitempty"`
	// Parser is one of bool, numeric, categorical, string
	Parser string `json:"parser"`
	// Suffix is a unit stripped before numeric parsing (e.g. "kg")
	Suffix string `json:"suffix,omitempty"`
	// TrueValues lists the tokens a bool parser maps to true
	TrueValues []string `json:"trueValues,omitempty"`
	// Levels fixes the categorical levels; empty collects them from the column
	Levels []string `json:"levels,omitempty"`
}

// ParseParseStageConfig parses a parse stage configuration from raw config.
func ParseParseStageConfig(cfg map[string]interface{}) (ParseStageConfig, error) {
	config := ParseStageConfig{}
	var err error

	if config.Column, err = requireString(cfg, "column"); err != nil {
		return config, err
	}
	if config.Parser, err = requireString(cfg, "parser"); err != nil {
		return config, err
	}
	if config.Target, err = optionalString(cfg, "target"); err != nil {
		return config, err
	}
	if config.Suffix, err = optionalString(cfg, "suffix"); err != nil {
		return config, err
	}
	if config.TrueValues, err = stringList(cfg, "trueValues"); err != nil {
		return config, err
	}
	if config.Levels, err = stringList(cfg, "levels"); err != nil {
		return config, err
	}
	return config, nil
}

// NewParser builds the column parser described by config.
func NewParser(config ParseStageConfig) (parse.Parser, error) {
	switch config.Parser {
	case ParserBool:
		if len(config.TrueValues) == 0 {
			return nil, fmt.Errorf("bool parser requires 'trueValues'")
		}
		return parse.Bool(config.TrueValues...), nil
	case ParserNumeric:
		if config.Suffix != "" {
			return parse.NumericWithSuffix(config.Suffix), nil
		}
		return parse.Numeric(), nil
	case ParserCategorical:
		return parse.Categorical(config.Levels...), nil
	case ParserString:
		return parse.String(), nil
	default:
		return nil, fmt.Errorf("unknown parser %q (want bool, numeric, categorical or string)", config.Parser)
	}
}

// NewParseFromConfig creates a parse stage.
func NewParseFromConfig(config ParseStageConfig) (pipeline.Stage, error) {
	if config.Column == "" {
		return nil, fmt.Errorf("required field 'column' is missing")
	}
	p, err := NewParser(config)
	if err != nil {
		return nil, err
	}
	return pipeline.ParseColumn(config.Column, config.Target, p), nil
}
