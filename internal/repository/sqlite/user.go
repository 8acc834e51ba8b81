package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

const userColumns = `email, name, display_name, create_date, password, parties`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u       model.User
		parties string
	)
	if err := row.Scan(&u.Email, &u.Name, &u.DisplayName, &u.CreateDate, &u.Password, &parties); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(parties), &u.Parties); err != nil {
		return nil, fmt.Errorf("decoding parties of %s: %w", u.Email, err)
	}
	if u.Parties == nil {
		u.Parties = []string{}
	}
	return &u, nil
}

// CreateUser inserts a new user. A second user with the same email is
// rejected with apperror.ErrConflict and the stored row is left as is.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.CreateDate.IsZero() {
		user.CreateDate = time.Now().UTC()
	}
	if user.Parties == nil {
		user.Parties = []string{}
	}
	parties, err := json.Marshal(user.Parties)
	if err != nil {
		return fmt.Errorf("sqlite: encoding parties of %s: %w", user.Email, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		user.Email,
		user.Name,
		user.DisplayName,
		user.CreateDate,
		user.Password,
		string(parties),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}
	if n == 0 {
		return apperror.Conflict("user", user.Email)
	}
	return nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}
	return u, nil
}

// GetUserByName looks a user up through idx_users_name. If several rows
// share a name (which registration prevents) the oldest wins.
func (db *DB) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = ? ORDER BY create_date LIMIT 1`, name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", name)
		}
		return nil, fmt.Errorf("sqlite: getting user by name %s: %w", name, err)
	}
	return u, nil
}

// ListUsers returns one page of users ordered by email.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.User], error) {
	q := sq.Select("email", "name", "display_name", "create_date", "password", "parties").
		From(repository.TableUsers)

	return page(ctx, db, q, "email", opts, func(rows *sql.Rows) (model.User, string, error) {
		u, err := scanUser(rows)
		if err != nil {
			return model.User{}, "", err
		}
		return *u, u.Email, nil
	})
}

func (db *DB) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password = ? WHERE email = ?`, passwordHash, email,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password of %s: %w", email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating password of %s: %w", email, err)
	}
	if n == 0 {
		return apperror.NotFound("user", email)
	}
	return nil
}

// AddParty appends partyID to the user's party list. Adding a party the
// user already belongs to is a no-op.
func (db *DB) AddParty(ctx context.Context, email, partyID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT parties FROM users WHERE email = ?`, email).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", email)
		}
		return fmt.Errorf("sqlite: reading parties of %s: %w", email, err)
	}

	var parties []string
	if err := json.Unmarshal([]byte(raw), &parties); err != nil {
		return fmt.Errorf("sqlite: decoding parties of %s: %w", email, err)
	}
	if slices.Contains(parties, partyID) {
		return nil
	}
	parties = append(parties, partyID)

	encoded, err := json.Marshal(parties)
	if err != nil {
		return fmt.Errorf("sqlite: encoding parties of %s: %w", email, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET parties = ? WHERE email = ?`, string(encoded), email,
	); err != nil {
		return fmt.Errorf("sqlite: updating parties of %s: %w", email, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing parties of %s: %w", email, err)
	}
	return nil
}
