// Package cmd provides common initialization for the ruleflow binaries:
// persistence, event bus and cache clients are selected from connection
// URLs so the API and the listener bootstrap identically.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/coinflux/ruleflow/pkg/persistence"
	"github.com/coinflux/ruleflow/pkg/persistence/file"
	"github.com/coinflux/ruleflow/pkg/persistence/postgresql"
)

// NewPersistence selects the storage adapter from the database URL scheme.
// postgres:// selects PostgreSQL; anything else falls back to the file
// adapter, which is what local development runs on.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, databaseURL, logger)
		if err != nil {
			panic("failed to initialize postgresql persistence: " + err.Error())
		}

		return p
	default:
		p, err := file.NewPersistence(databaseURL)
		if err != nil {
			panic("failed to initialize file persistence: " + err.Error())
		}

		return p
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
