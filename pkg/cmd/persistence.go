// Package cmd provides common initialization for the flowgrid binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/persistence/file"
	"github.com/flowgrid/flowgrid/pkg/persistence/postgres"
)

// NewPersistence selects the storage backend from the database URL scheme:
// postgres:// for PostgreSQL, anything else falls back to the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseScheme(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgres.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseScheme(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
