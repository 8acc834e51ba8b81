package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
)

// GetAuthConfig returns the singleton row, or apperror.ErrNotFound before
// the first bootstrap.
func (db *DB) GetAuthConfig(ctx context.Context, name string) (*model.AuthConfig, error) {
	var cfg model.AuthConfig
	err := db.conn.QueryRowContext(ctx,
		`SELECT name, expiry_days, key FROM auth_config WHERE name = ?`,
		name,
	).Scan(&cfg.Name, &cfg.ExpiryDays, &cfg.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("auth config", name)
		}
		return nil, fmt.Errorf("sqlite: getting auth config %s: %w", name, err)
	}
	return &cfg, nil
}

// CreateAuthConfig inserts the singleton unless one already exists.
// The existing key is never overwritten.
func (db *DB) CreateAuthConfig(ctx context.Context, cfg *model.AuthConfig) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO auth_config (name, expiry_days, key) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		cfg.Name, int64(cfg.ExpiryDays), cfg.Key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating auth config %s: %w", cfg.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: creating auth config %s: %w", cfg.Name, err)
	}
	if n == 0 {
		return apperror.Conflict("auth config", cfg.Name)
	}
	return nil
}
