package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/shared"
)

// SetupDatabase initializes the local mapping database and runs migrations.
//
// A missing config file is created from the embedded template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.configPath != "" {
		if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", r.configPath)
			if err := shared.CreateConfigFile(r.configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else if config, err := shared.LoadConfig(r.configPath); err == nil {
				r.config = config
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, release, err := r.openLocal()
	if err != nil {
		return err
	}
	defer release()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ local database ready (schema version %d)\n", version)
}

// SetupCore applies the Core schema. Production Core databases are managed elsewhere.
func (r *Runner) SetupCore(ctx context.Context, cmd *cli.Command) error {
	db, release, err := r.openCore()
	if err != nil {
		return err
	}
	defer release()

	r.logger.Info("running core migrations", "driver", r.config.Core.Driver)
	if err := shared.RunCoreMigrations(db); err != nil {
		return fmt.Errorf("failed to run core migrations: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	return r.writePlain("✓ core schema ready (schema version %d)\n", version)
}
