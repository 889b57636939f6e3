package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"weeklymix/internal/services"
	"weeklymix/internal/shared"
)

func main() {
	// .env is optional; environment variables override config credentials.
	_ = godotenv.Load()

	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "err", err)
		}
	}

	var music services.MusicService
	if svc, err := services.NewSpotifyService(config.Credentials.Spotify, nil, logger); err == nil {
		music = svc
	} else {
		logger.Debug("spotify service unavailable", "err", err)
	}

	var ai services.AIService
	if svc, err := services.NewOpenAIService(config.Credentials.OpenAI, logger); err == nil {
		ai = svc
	} else {
		logger.Debug("openai service unavailable", "err", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Music:  music,
		AI:     ai,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "weeklymix",
		Usage:    "Generate a weekly Spotify discovery playlist from your listening history",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
