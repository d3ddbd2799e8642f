package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/catalogcsv/internal/admin"
	"github.com/JonMunkholm/catalogcsv/internal/config"
	"github.com/JonMunkholm/catalogcsv/internal/core"
	"github.com/JonMunkholm/catalogcsv/internal/database"
	"github.com/JonMunkholm/catalogcsv/internal/memstore"
)

// backend is the storage a command works against.
type backend struct {
	stores    core.Stores
	templates core.TemplateStore
	seeder    admin.Seeder
	resetter  admin.Resetter
	close     func()
}

// openDatabase connects to the Postgres database named by DATABASE_URL.
func openDatabase(ctx context.Context) (*backend, error) {
	var dbCfg config.DatabaseConfig
	if err := config.LoadInto(&dbCfg); err != nil {
		return nil, err
	}
	if dbCfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required (or use --fixture for an in-memory run)")
	}

	pool, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}

	repo := database.NewRepository(pool)
	return &backend{
		stores:    repo.Stores(),
		templates: repo,
		seeder:    repo,
		resetter:  repo,
		close:     pool.Close,
	}, nil
}

// openFixture builds an in-memory store seeded from a fixture file. Nothing
// written to it outlives the command.
func openFixture(ctx context.Context, path string) (*backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	fixture, err := admin.LoadFixture(f)
	if err != nil {
		return nil, err
	}

	store := memstore.New()
	summary, err := admin.Seed(ctx, store, fixture)
	if err != nil {
		return nil, err
	}
	slog.Info("in-memory store seeded", "fixture", path, "summary", summary.String())

	return &backend{
		stores:    store.Stores(),
		templates: store,
		seeder:    store,
		resetter:  store,
		close:     func() {},
	}, nil
}

// openBackend picks the in-memory store when a fixture is given and the
// database otherwise.
func openBackend(ctx context.Context, fixture string) (*backend, error) {
	if fixture != "" {
		return openFixture(ctx, fixture)
	}
	return openDatabase(ctx)
}

// loadImportConfig reads the IMPORT_* settings and validates them.
func loadImportConfig() (config.ImportConfig, error) {
	var cfg config.ImportConfig
	if err := config.LoadInto(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
