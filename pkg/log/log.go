// Package log configures the process-wide structured logger shared by the
// flowgrid binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

var level slog.LevelVar

// Setup installs the default text logger at the given level. Unknown level
// names fall back to info.
func Setup(logLevel string) {
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		level.Set(slog.LevelInfo)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: &level,
	})))
}

// WithModule returns the default logger tagged with a module attribute.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
