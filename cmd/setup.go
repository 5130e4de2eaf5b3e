package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when it is missing, then initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config == nil && configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.writeLine(ui.OK("✓ Created " + configPath))
			}
		}
	}

	config := r.configure(cmd)
	r.logger.Info("initializing database", "path", config.Database.Path)

	if _, err := r.database(); err != nil {
		return err
	}

	r.writeLine(ui.OK("✓ Database ready: " + config.Database.Path))
	if err := config.Validate(); err != nil {
		r.writeLine(ui.Warn(fmt.Sprintf("! %v", err)))
		r.writeLine(ui.Help("Set the missing values in " + configPath + " or .env before running serve"))
	}
	return nil
}

// Rollback reverts the most recently applied migration.
func (r *Runner) Rollback(ctx context.Context, cmd *cli.Command) error {
	config := r.configure(cmd)

	db := r.db
	if db == nil {
		var err error
		if db, err = shared.NewDatabase(config.Database.Path); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()
	}

	version, err := shared.RollbackMigration(db)
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return r.writeLine(ui.OK(fmt.Sprintf("✓ Rolled back migration %d", version)))
}

// TokensPurge removes revocation records whose tokens have expired.
func (r *Runner) TokensPurge(ctx context.Context, cmd *cli.Command) error {
	r.configure(cmd)

	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewTokenRepository(db).Purge(time.Now())
	if err != nil {
		return err
	}
	return r.writeLine(ui.OK(fmt.Sprintf("✓ Purged %d expired revocations", n)))
}
