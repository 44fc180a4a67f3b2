package main

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
)

const placeholderAPIKey = "your_tmdb_api_key"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	configPath := cmp.Or(os.Getenv("LUNA_CONFIG"), "config.toml")
	config, err := loadConfig(configPath)
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Metadata:   newMetadata(config, httpClient, nil),
		Anime:      services.NewAniListService(config.Credentials.AniList.URL, config.Credentials.AniList.RateLimit, httpClient),
		Sports:     services.NewStreamedService(config.Credentials.Streamed.BaseURL, httpClient),
		API:        services.NewAPIService(config.API.BaseURL, httpClient),
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:    "luna",
		Usage:   "Stream movies, TV, anime and live sports",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("LUNA_DEBUG")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				shared.SetLogLevel(runner.logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path over the bundled defaults when it exists, then applies LUNA_* overrides.
func loadConfig(path string) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	shared.ApplyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("after applying environment: %w", err)
	}
	return config, nil
}

// newMetadata builds the TMDB client, or returns nil when no API key is configured.
func newMetadata(config *shared.Config, client *http.Client, onRequest func()) services.Metadata {
	tmdb := config.Credentials.TMDB
	if tmdb.APIKey == "" || tmdb.APIKey == placeholderAPIKey {
		return nil
	}
	return services.NewTMDBService(services.TMDBOpts{
		APIKey:       tmdb.APIKey,
		BaseURL:      tmdb.BaseURL,
		ImageBaseURL: tmdb.ImageBaseURL,
		RateLimit:    tmdb.RateLimit,
		CacheSize:    tmdb.CacheSize,
		CacheTTL:     time.Duration(tmdb.CacheTTLSeconds) * time.Second,
		HTTPClient:   client,
		OnRequest:    onRequest,
	})
}
