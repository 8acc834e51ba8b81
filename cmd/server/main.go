// Command server runs the ConnectionPoints HTTP API.
//
// STARTUP ORDER:
//  1. configuration from the environment (and .env)
//  2. logger
//  3. store (SQLite or DynamoDB)
//  4. bootstrap: tables and the signing secret
//  5. services, then the HTTP server
//
// Bootstrap failures are fatal. No request is served before the tables
// and the AuthConfig exist.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/config"
	"github.com/sakif/connection-points/internal/email"
	"github.com/sakif/connection-points/internal/handler"
	"github.com/sakif/connection-points/internal/logging"
	"github.com/sakif/connection-points/internal/repository"
	"github.com/sakif/connection-points/internal/repository/dynamo"
	"github.com/sakif/connection-points/internal/repository/sqlite"
	"github.com/sakif/connection-points/internal/server"
	"github.com/sakif/connection-points/internal/service"
)

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := logging.Setup(cfg.LogLevel)

	// === 3. STORE ===
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	store, err := openStore(ctx, cfg)
	if err != nil {
		cancel()
		logger.Error("failed to open store",
			slog.String("driver", cfg.Storage.Driver),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// === 4. BOOTSTRAP ===
	authCfg, err := service.NewBootstrapper(store, logger).EnsureReady(ctx)
	cancel()
	if err != nil {
		logger.Error("bootstrap failed", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}

	// === 5. SERVICES ===
	mailer := email.New(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail)
	if !mailer.Configured() {
		logger.Warn("SENDGRID_API_KEY not set; password reset emails will fail")
	}

	identity, err := service.NewIdentityService(
		store, authCfg, auth.NewPasswordService(), mailer, cfg.MaxCredentialUsers, logger,
	)
	if err != nil {
		logger.Error("failed to create identity service", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}
	points := service.NewPointsService(store, store, store)

	// A nil *GitHubProvider in a non-nil interface would mount the routes.
	var github handler.GitHub
	if cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	} else {
		logger.Info("GitHub sign-in disabled; set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET to enable it")
	}

	// === 6. SERVER ===
	srv := server.New(server.Config{
		Port:           cfg.Port,
		LoginRateLimit: cfg.LoginRateLimit,
	}, server.Services{
		Identity:   identity,
		Parties:    service.NewPartyService(store, store, logger),
		Challenges: service.NewChallengeService(store, store, store, logger),
		Rewards:    service.NewRewardService(store, store, store, points, logger),
		Points:     points,
		GitHub:     github,
	}, store, logger)

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		dir := filepath.Dir(cfg.Storage.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
		return sqlite.New(cfg.Storage.SQLitePath)
	case config.DriverDynamoDB:
		return dynamo.New(ctx, dynamo.Options{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.DynamoDBEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
