package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"weeklymix/internal/shared"
)

// Setup creates a config file from the template and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if loaded, err := shared.LoadConfig(configPath); err == nil {
				config = loaded
			}
		}
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.writePlainln("Setup complete. Fill in credentials in %s (or via environment variables) and run 'weeklymix auth'.", configPath)
}
