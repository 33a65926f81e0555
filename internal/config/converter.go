package config

import (
	"fmt"
	"path/filepath"

	"github.com/canectors/wrangle/internal/pathutil"
	"github.com/canectors/wrangle/pkg/definition"
)

// Default module types used when a definition omits "type".
const (
	DefaultSourceType = "textFile"
	DefaultOutputType = "textFile"
)

// Module settings holding file paths relative to the definition file.
// Data files may live anywhere; script files must stay under the
// definition's directory.
var (
	pathKeys      = []string{"path"}
	containedKeys = []string{"scriptFile"}
)

// ConvertToDefinition converts parsed definition data to a Pipeline.
// The data should have been validated against the schema before calling this
// function. Relative paths in modules are resolved against baseDir.
//
// The definition is expected to have this structure:
//
//	{
//	  "pipeline": {"name": "...", "version": "...", "description": "..."},
//	  "source": {...},
//	  "stages": [...],
//	  "output": {...}
//	}
func ConvertToDefinition(data map[string]interface{}, baseDir string) (*definition.Pipeline, error) {
	if data == nil {
		return nil, fmt.Errorf("pipeline definition is nil")
	}

	header, ok := data["pipeline"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'pipeline' section")
	}

	p := &definition.Pipeline{BaseDir: baseDir}
	if p.Name, ok = header["name"].(string); !ok || p.Name == "" {
		return nil, fmt.Errorf("missing required field 'pipeline.name'")
	}
	p.Version, _ = header["version"].(string)
	p.Description, _ = header["description"].(string)

	sourceData, ok := data["source"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'source' section")
	}
	source, err := convertModuleConfig(sourceData, DefaultSourceType, baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}
	p.Source = source

	if raw, present := data["stages"]; present && raw != nil {
		stagesData, isList := raw.([]interface{})
		if !isList {
			return nil, fmt.Errorf("invalid 'stages' section: expected a list, got %T", raw)
		}
		p.Stages = make([]definition.ModuleConfig, 0, len(stagesData))
		for i, stageData := range stagesData {
			stageMap, isMap := stageData.(map[string]interface{})
			if !isMap {
				return nil, fmt.Errorf("invalid stage at index %d", i)
			}
			stage, convertErr := convertModuleConfig(stageMap, "", baseDir)
			if convertErr != nil {
				return nil, fmt.Errorf("invalid stage at index %d: %w", i, convertErr)
			}
			p.Stages = append(p.Stages, *stage)
		}
	}

	if raw, present := data["output"]; present && raw != nil {
		outputData, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("invalid 'output' section")
		}
		output, convertErr := convertModuleConfig(outputData, DefaultOutputType, baseDir)
		if convertErr != nil {
			return nil, fmt.Errorf("invalid output config: %w", convertErr)
		}
		p.Output = output
	}

	return p, nil
}

// convertModuleConfig converts a raw module map to a ModuleConfig. Every key
// but "type" goes to Config. An empty defaultType makes "type" required.
func convertModuleConfig(data map[string]interface{}, defaultType, baseDir string) (*definition.ModuleConfig, error) {
	moduleConfig := &definition.ModuleConfig{
		Config: make(map[string]interface{}, len(data)),
	}

	moduleType, ok := data["type"].(string)
	switch {
	case ok && moduleType != "":
		moduleConfig.Type = moduleType
	case defaultType != "":
		moduleConfig.Type = defaultType
	default:
		return nil, fmt.Errorf("missing required field 'type'")
	}

	for key, value := range data {
		if key != "type" {
			moduleConfig.Config[key] = value
		}
	}

	for _, key := range pathKeys {
		if p, isString := moduleConfig.Config[key].(string); isString {
			moduleConfig.Config[key] = pathutil.Resolve(baseDir, p)
		}
	}
	for _, key := range containedKeys {
		if p, isString := moduleConfig.Config[key].(string); isString {
			resolved, err := pathutil.ResolveContained(baseDir, p)
			if err != nil {
				return nil, fmt.Errorf("invalid '%s': %w", key, err)
			}
			moduleConfig.Config[key] = resolved
		}
	}

	return moduleConfig, nil
}

// LoadDefinition parses, validates and converts the definition file at path.
// The returned Result carries parse and validation errors; the error is
// non-nil whenever no Pipeline could be produced.
func LoadDefinition(path string) (*definition.Pipeline, *Result, error) {
	result := ParseConfig(path)
	if err := result.Err(); err != nil {
		return nil, result, err
	}

	p, err := ConvertToDefinition(result.Data, filepath.Dir(path))
	if err != nil {
		return nil, result, err
	}
	return p, result, nil
}
