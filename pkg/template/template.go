// Package template resolves {{variable}} placeholders in action
// configurations against an execution's variable context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/flowgrid/flowgrid/pkg/expr"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

// Render substitutes every {{name}} placeholder with the value at that dot
// path in the variable context. Missing variables render as the empty string.
func Render(input string, vars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := strings.TrimSpace(strings.Trim(match, "{}"))

		value, ok := expr.Lookup(path, vars)
		if !ok || value == nil {
			return ""
		}

		return stringify(value)
	})
}

// RenderConfig deep-copies an action configuration, rendering every string
// value it finds. Non-string values pass through untouched.
func RenderConfig(config map[string]any, vars map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	resolved := make(map[string]any, len(config))

	for key, value := range config {
		resolved[key] = renderValue(value, vars)
	}

	return resolved
}

func renderValue(value any, vars map[string]any) any {
	switch v := value.(type) {
	case string:
		return Render(v, vars)
	case map[string]any:
		return RenderConfig(v, vars)
	case []any:
		rendered := make([]any, len(v))

		for i, item := range v {
			rendered[i] = renderValue(item, vars)
		}

		return rendered
	default:
		return value
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	case float64:
		// Whole numbers print without a trailing ".0" so templated ids and
		// counts look the way they were written.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}

		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
