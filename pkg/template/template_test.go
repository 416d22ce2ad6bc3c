package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	vars := map[string]any{
		"name":   "Ada",
		"amount": 150.0,
		"rate":   0.25,
		"user": map[string]any{
			"email": "ada@example.com",
		},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "no placeholders here", "no placeholders here"},
		{"single variable", "Hello {{name}}", "Hello Ada"},
		{"dot path", "To: {{user.email}}", "To: ada@example.com"},
		{"whole number", "Amount: {{amount}}", "Amount: 150"},
		{"fractional number", "Rate: {{rate}}", "Rate: 0.25"},
		{"missing variable renders empty", "Hi {{nobody}}!", "Hi !"},
		{"spaces inside braces", "Hello {{ name }}", "Hello Ada"},
		{"multiple placeholders", "{{name}} <{{user.email}}>", "Ada <ada@example.com>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Render(tt.input, vars))
		})
	}
}

func TestRenderConfig(t *testing.T) {
	vars := map[string]any{"to": "ops@example.com", "task": "review"}

	config := map[string]any{
		"to":      "{{to}}",
		"subject": "Task: {{task}}",
		"retries": 3,
		"nested": map[string]any{
			"body": "Please {{task}} today",
		},
		"cc": []any{"{{to}}", "static@example.com"},
	}

	resolved := RenderConfig(config, vars)

	assert.Equal(t, "ops@example.com", resolved["to"])
	assert.Equal(t, "Task: review", resolved["subject"])
	assert.Equal(t, 3, resolved["retries"])
	assert.Equal(t, "Please review today", resolved["nested"].(map[string]any)["body"])
	assert.Equal(t, []any{"ops@example.com", "static@example.com"}, resolved["cc"])

	// The original config is never mutated.
	assert.Equal(t, "{{to}}", config["to"])
}

func TestRenderConfig_NilConfig(t *testing.T) {
	resolved := RenderConfig(nil, map[string]any{"a": 1})
	assert.NotNil(t, resolved)
	assert.Empty(t, resolved)
}
