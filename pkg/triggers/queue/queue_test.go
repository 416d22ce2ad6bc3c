package queue

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsumer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name        string
		config      map[string]any
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid_config",
			config: map[string]any{
				"queue": "flowgrid_events",
				"connection": map[string]any{
					"addr":     "localhost:6379",
					"password": "",
					"db":       "0",
				},
			},
			expectError: false,
		},
		{
			name:        "missing_queue",
			config:      map[string]any{},
			expectError: true,
			errorMsg:    "queue consumer queue name is required",
		},
		{
			name: "connection_defaults",
			config: map[string]any{
				"queue": "flowgrid_events",
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer, err := NewConsumer(tt.config, logger)

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "flowgrid_events", consumer.Queue)
		})
	}
}

func TestConsumer_ConnectionParsing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	consumer, err := NewConsumer(map[string]any{
		"queue": "q",
		"connection": map[string]any{
			"addr": "redis.internal:6380",
			"db":   "2",
			// Non-string values are ignored.
			"timeout": 5,
		},
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", consumer.Connection["addr"])
	assert.Equal(t, "2", consumer.Connection["db"])
	assert.NotContains(t, consumer.Connection, "timeout")
}
