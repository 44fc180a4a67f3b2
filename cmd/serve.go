package main

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/repositories"
	"github.com/desertthunder/lunastream/internal/server"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the JSON API until interrupted.
//
// Outbound TMDB requests are counted in the tmdb_requests statistic.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(r.config)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("migrate") {
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	stats := repositories.NewStatisticsRepository(db)
	metadata := newMetadata(r.config, r.httpClient, func() {
		go func() {
			if err := stats.Increment(models.MetricTMDBRequests); err != nil {
				r.logger.Debug("failed to count tmdb request", "error", err)
			}
		}()
	})
	if metadata == nil {
		r.logger.Warn("TMDB API key not configured; movie and TV routes will return 503")
	}

	var identity server.IdentityResolver
	if oidc := r.config.Credentials.OIDC; oidc.Issuer != "" {
		resolver, err := server.NewOIDCIdentity(ctx, oidc.Issuer, oidc.ClientID)
		if err != nil {
			return fmt.Errorf("failed to configure identity provider: %w", err)
		}
		identity = resolver
		r.logger.Info("verifying identities", "issuer", oidc.Issuer)
	} else {
		r.logger.Warn("no identity provider configured; every caller is a guest")
	}

	if r.config.Server.AdminPasswordHash == "" {
		r.logger.Warn("admin password hash not set; admin routes are disabled")
	}

	srv := server.New(server.Options{
		DB:                db,
		Catalog:           tasks.NewCatalogEngine(metadata, r.anime, r.logger),
		Sports:            r.sports,
		Identity:          identity,
		AdminPasswordHash: r.config.Server.AdminPasswordHash,
		AllowedOrigins:    r.config.Server.AllowedOrigins,
		Logger:            r.logger,
	})

	return srv.ListenAndServe(ctx, cmp.Or(cmd.String("addr"), r.config.Server.Addr()))
}
