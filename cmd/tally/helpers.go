package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fintally/tally/internal/config"
	"github.com/fintally/tally/internal/service"
	"github.com/fintally/tally/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(config.DatabasePath())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func parseID(arg, what string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID %q", what, arg)
	}
	return id, nil
}
