// Package service holds the business rules between the HTTP handlers and
// the repositories. Services accept plain values, return model types and
// apperror values, and know nothing about HTTP or the storage backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

// BootstrapStore is what EnsureReady needs from storage.
type BootstrapStore interface {
	repository.SchemaManager
	repository.AuthConfigRepository
}

// Bootstrapper provisions tables and the AuthConfig singleton.
type Bootstrapper struct {
	store     BootstrapStore
	logger    *slog.Logger
	newSecret func() (string, error)
}

func NewBootstrapper(store BootstrapStore, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{
		store:     store,
		logger:    logger,
		newSecret: auth.GenerateSecret,
	}
}

// EnsureReady creates every missing table, then returns the AuthConfig,
// creating it with a fresh secret on first run. It is safe to call any
// number of times and from several processes at once: the stored key is
// never replaced, so every call returns the same key.
func (b *Bootstrapper) EnsureReady(ctx context.Context) (*model.AuthConfig, error) {
	for _, table := range repository.Tables {
		exists, err := b.store.TableExists(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: checking table %s: %w", table, err)
		}
		if exists {
			continue
		}
		if err := b.store.CreateTable(ctx, table); err != nil {
			return nil, fmt.Errorf("bootstrap: creating table %s: %w", table, err)
		}
		b.logger.Info("table created", slog.String("table", table))
	}

	cfg, err := b.store.GetAuthConfig(ctx, model.AuthConfigName)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("bootstrap: reading auth config: %w", err)
	}

	secret, err := b.newSecret()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: generating secret: %w", err)
	}
	cfg = &model.AuthConfig{
		Name:       model.AuthConfigName,
		ExpiryDays: model.DefaultExpiryDays,
		Key:        secret,
	}

	err = b.store.CreateAuthConfig(ctx, cfg)
	switch {
	case err == nil:
		b.logger.Info("auth config created", slog.Int("expiry_days", cfg.ExpiryDays))
		return cfg, nil
	case errors.Is(err, apperror.ErrConflict):
		// Another instance created it first; its key wins.
		stored, err := b.store.GetAuthConfig(ctx, model.AuthConfigName)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: re-reading auth config: %w", err)
		}
		return stored, nil
	default:
		return nil, fmt.Errorf("bootstrap: creating auth config: %w", err)
	}
}
