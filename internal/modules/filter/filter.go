// Package filter builds pipeline stages from stage configuration.
// Stage types: parse, derive, filter, select, sort, rename and inspect, plus
// drop, set and format, which are built on the first ones. Each reads its
// raw definition map and returns a pipeline.Stage.
package filter

import (
	"fmt"
	"math"
)

// requireString returns the non-empty string stored at key.
func requireString(cfg map[string]interface{}, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("required field '%s' is missing", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string, got %T", key, raw)
	}
	if s == "" {
		return "", fmt.Errorf("field '%s' cannot be empty", key)
	}
	return s, nil
}

// optionalString returns the string stored at key, or "" when absent.
func optionalString(cfg map[string]interface{}, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' must be a string, got %T", key, raw)
	}
	return s, nil
}

// stringList returns the list of strings stored at key, or nil when absent.
func stringList(cfg map[string]interface{}, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch items := raw.(type) {
	case []string:
		return items, nil
	case []interface{}:
		out := make([]string, len(items))
		for i, item := range items {
			s, isString := item.(string)
			if !isString {
				return nil, fmt.Errorf("field '%s[%d]' must be a string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field '%s' must be a list of strings, got %T", key, raw)
	}
}

// optionalInt returns the non-negative integer stored at key, or def when absent.
// JSON numbers arrive as float64 and must be integral.
func optionalInt(cfg map[string]interface{}, key string, def int) (int, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return def, nil
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field '%s' must be an integer, got %v", key, v)
		}
		n = int(v)
	default:
		return 0, fmt.Errorf("field '%s' must be an integer, got %T", key, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("field '%s' cannot be negative", key)
	}
	return n, nil
}
