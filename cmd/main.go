package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	// config is loaded in Before once flags are parsed; the runner shares the pointer
	config := shared.DefaultConfig()
	runner := NewRunner(RunnerOpts{Config: config, ConfigPath: defaultConfigPath, Logger: logger})

	app := &cli.Command{
		Name:    "crate",
		Usage:   "Browse, manage and export your Spotify library",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file with CRATE_* overrides",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, runner.loadConfig(cmd.String("config"), cmd.String("env-file"), cmd.Bool("verbose"))
		},
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "err", cerr)
	}
	if err != nil {
		switch {
		case services.IsAuthError(err):
			logger.Error(err)
			logger.Fatal("please run `crate auth login`")
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// loadConfig reads path into the runner's config (keeping defaults when the
// file is missing), applies the environment overlay and sets the log level.
func (r *Runner) loadConfig(path, envFile string, verbose bool) error {
	r.configPath = path

	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		*r.config = *loaded
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	if err := r.config.ApplyEnv(envFile); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if verbose {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return nil
}
