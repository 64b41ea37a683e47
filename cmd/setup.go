package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/shared"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("%s\n", r.palette.OK("Config written to "+r.configPath))
	r.writePlainln("Next steps:")
	r.writePlain("1. Create an app at https://developer.spotify.com/dashboard\n")
	r.writePlain("2. Add %s as a redirect URI\n", r.config.Credentials.Spotify.RedirectURI)
	r.writePlain("3. Set credentials.spotify.client_id in %s (or %s)\n", r.configPath, shared.EnvClientID)
	r.writePlain("4. Run 'crate auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations, or rolls back
// the latest one with --rollback.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("%s\n", r.palette.OK("Rolled back latest migration"))
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Database ready at %s (%d migrations applied)", path, len(applied))))
}
