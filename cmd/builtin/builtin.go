// Package builtin provides the commands of the fsdb executable.
package builtin

import (
	"context"
	"fmt"

	"github.com/mwantia/fsdb"
	"github.com/mwantia/fsdb/cmd"
	"github.com/mwantia/fsdb/config"
	"github.com/mwantia/fsdb/log"
)

// InitBuiltin registers every builtin command.
func InitBuiltin(r *cmd.Registry) error {
	commands := []cmd.Command{
		&ImportCommand{},
		&LsCommand{},
		&MetaCommand{},
		&RmCommand{},
	}

	for _, c := range commands {
		if err := r.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func configOf(env *cmd.Env) *config.Config {
	if env == nil || env.Config == nil {
		return config.DefaultConfig()
	}
	return env.Config
}

func loggerOf(env *cmd.Env) *log.Logger {
	if env == nil || env.Log == nil {
		return log.Discard()
	}
	return env.Log
}

// openDatabase opens and connects the database at catalog. The configured
// storage address is used when catalog is the configured catalog.
func openDatabase(ctx context.Context, env *cmd.Env, catalog string, extra ...fsdb.DatabaseOption) (*fsdb.DB, error) {
	cfg := configOf(env)

	storage := ""
	if cfg.Database.Catalog != "" && catalog == cfg.Database.Catalog {
		storage = cfg.Database.Storage
	}

	opts := []fsdb.DatabaseOption{
		fsdb.WithLogger(loggerOf(env).Named("db")),
	}
	if cfg.Database.Initialize {
		opts = append(opts, fsdb.WithInitialize())
	}
	opts = append(opts, extra...)

	db, err := fsdb.Open(catalog, storage, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", catalog, err)
	}

	if err := db.Connect(ctx); err != nil {
		db.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to connect to database '%s': %w", catalog, err)
	}

	return db, nil
}

func closeDatabase(ctx context.Context, env *cmd.Env, db *fsdb.DB) {
	if err := db.Close(context.WithoutCancel(ctx)); err != nil {
		loggerOf(env).Warn("Failed to close database: %v", err)
	}
}
