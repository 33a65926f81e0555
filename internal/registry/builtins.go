package registry

import (
	"fmt"

	"github.com/canectors/wrangle/internal/modules/filter"
	"github.com/canectors/wrangle/internal/modules/input"
	"github.com/canectors/wrangle/internal/modules/output"
	"github.com/canectors/wrangle/pkg/definition"
	"github.com/canectors/wrangle/pkg/pipeline"
)

func init() {
	RegisterBuiltins()
}

// registerBuiltinInputModules registers all built-in source types.
func registerBuiltinInputModules() {
	// textFile - delimited text table on disk
	RegisterInput("textFile", func(cfg *definition.ModuleConfig) (input.Module, error) {
		m, err := input.NewTextFileFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})

	// inline - table written in the definition itself
	RegisterInput("inline", func(cfg *definition.ModuleConfig) (input.Module, error) {
		m, err := input.NewInlineFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// stageFromMap adapts a constructor reading the raw config map.
func stageFromMap(build func(map[string]interface{}) (pipeline.Stage, error)) StageConstructor {
	return func(cfg definition.ModuleConfig, index int) (pipeline.Stage, error) {
		stage, err := build(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid %s config at index %d: %w", cfg.Type, index, err)
		}
		return stage, nil
	}
}

// stageFromConfig adapts a parse step followed by a constructor taking the
// typed configuration.
func stageFromConfig[C any](parse func(map[string]interface{}) (C, error), build func(C) (pipeline.Stage, error)) StageConstructor {
	return stageFromMap(func(raw map[string]interface{}) (pipeline.Stage, error) {
		c, err := parse(raw)
		if err != nil {
			return nil, err
		}
		return build(c)
	})
}

// registerBuiltinStageModules registers all built-in stage types.
func registerBuiltinStageModules() {
	RegisterStage(pipeline.KindRename, stageFromMap(filter.NewRenameFromConfig))
	RegisterStage(pipeline.KindParse, stageFromConfig(filter.ParseParseStageConfig, filter.NewParseFromConfig))
	RegisterStage(pipeline.KindDerive, stageFromConfig(filter.ParseDeriveConfig, filter.NewDeriveFromConfig))
	RegisterStage(pipeline.KindFilter, stageFromConfig(filter.ParseConditionConfig, filter.NewConditionFromConfig))
	RegisterStage(pipeline.KindSelect, stageFromMap(filter.NewSelectFromConfig))
	RegisterStage(pipeline.KindSort, stageFromMap(filter.NewSortFromConfig))
	RegisterStage(pipeline.KindInspect, stageFromMap(filter.NewInspectFromConfig))
	RegisterStage(filter.KindDrop, stageFromConfig(filter.ParseDropConfig, filter.NewDropFromConfig))
	RegisterStage(filter.KindSet, stageFromConfig(filter.ParseSetConfig, filter.NewSetFromConfig))
	RegisterStage(filter.KindFormat, stageFromConfig(filter.ParseFormatConfig, filter.NewFormatFromConfig))
}

// outputFrom adapts a constructor returning a concrete output type. A nil
// module is returned on error so callers never see a typed nil.
func outputFrom[M output.Module](build func(*definition.ModuleConfig) (M, error)) OutputConstructor {
	return func(cfg *definition.ModuleConfig) (output.Module, error) {
		m, err := build(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

// registerBuiltinOutputModules registers all built-in output types.
func registerBuiltinOutputModules() {
	RegisterOutput("textFile", outputFrom(output.NewTextFileFromConfig))
	RegisterOutput("console", outputFrom(output.NewConsoleFromConfig))
	RegisterOutput(output.FormatArrow, outputFrom(output.NewArrowFromConfig))
	RegisterOutput(output.FormatParquet, outputFrom(output.NewParquetFromConfig))
}
