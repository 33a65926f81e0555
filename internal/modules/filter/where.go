package filter

import (
	"fmt"

	"github.com/canectors/wrangle/pkg/table"
)

// ParseWhere builds a predicate from a structured condition:
//
//	{column: Sex, op: eq, value: Male}
//	{column: Smoker, op: in, values: [Yes, TRUE]}
//	{all: [...]} / {any: [...]} / {not: {...}}
//
// Literal values keep their JSON/YAML type; string literals are coerced to
// the column kind when the predicate is evaluated.
func ParseWhere(where map[string]interface{}) (table.Predicate, error) {
	return parseWhere(where, "where")
}

func parseWhere(where map[string]interface{}, path string) (table.Predicate, error) {
	if where == nil {
		return nil, fmt.Errorf("%s: condition cannot be empty", path)
	}

	if raw, ok := where["all"]; ok {
		preds, err := parseWhereList(raw, path+".all")
		if err != nil {
			return nil, err
		}
		return table.And(preds...), nil
	}
	if raw, ok := where["any"]; ok {
		preds, err := parseWhereList(raw, path+".any")
		if err != nil {
			return nil, err
		}
		return table.Or(preds...), nil
	}
	if raw, ok := where["not"]; ok {
		inner, isMap := raw.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("%s.not: expected a condition object, got %T", path, raw)
		}
		pred, err := parseWhere(inner, path+".not")
		if err != nil {
			return nil, err
		}
		return table.Not(pred), nil
	}

	return parseComparison(where, path)
}

func parseWhereList(raw interface{}, path string) ([]table.Predicate, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected a list of conditions, got %T", path, raw)
	}
	preds := make([]table.Predicate, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		cond, isMap := item.(map[string]interface{})
		if !isMap {
			return nil, fmt.Errorf("%s: expected a condition object, got %T", itemPath, item)
		}
		pred, err := parseWhere(cond, itemPath)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return preds, nil
}

func parseComparison(where map[string]interface{}, path string) (table.Predicate, error) {
	column, err := requireString(where, "column")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	op, err := requireString(where, "op")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	switch op {
	case "missing":
		return table.IsMissing(column), nil

	case "contains", "prefix":
		text, textErr := requireString(where, "value")
		if textErr != nil {
			return nil, fmt.Errorf("%s: %w", path, textErr)
		}
		if op == "prefix" {
			return table.HasPrefix(column, text), nil
		}
		return table.Contains(column, text), nil

	case "in":
		raw, ok := where["values"]
		if !ok {
			raw = where["value"]
		}
		items, isList := raw.([]interface{})
		if !isList {
			return nil, fmt.Errorf("%s: op 'in' requires a list in 'values', got %T", path, raw)
		}
		values := make([]table.Value, len(items))
		for i, item := range items {
			v, convErr := literal(item)
			if convErr != nil {
				return nil, fmt.Errorf("%s.values[%d]: %w", path, i, convErr)
			}
			values[i] = v
		}
		return table.In(column, values...), nil
	}

	cmpOp, err := table.ParseCompareOp(op)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	raw, ok := where["value"]
	if !ok {
		return nil, fmt.Errorf("%s: op '%s' requires a 'value'", path, op)
	}
	v, err := literal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s.value: %w", path, err)
	}
	return table.Compare(column, cmpOp, v), nil
}

// literal converts a decoded JSON/YAML scalar into a Value. null is rejected
// since comparisons with missing are always false; use op 'missing' instead.
func literal(raw interface{}) (table.Value, error) {
	if raw == nil {
		return table.Value{}, fmt.Errorf("literal cannot be null; use op 'missing'")
	}
	return table.FromAny(raw)
}
