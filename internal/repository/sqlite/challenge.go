package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

var challengeColumns = []string{
	"id", "party_id", "name", "description", "points", "creator", "create_date",
	"due_date", "recurring", "owner", "status", "update_date", "complete_date",
	"accepted", "credited", "picture",
}

func scanChallenge(row rowScanner) (*model.Challenge, error) {
	var (
		c                 model.Challenge
		recurring, status string
		due, completed    sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.PartyID, &c.Name, &c.Description, &c.Points, &c.Creator, &c.CreateDate,
		&due, &recurring, &c.Owner, &status, &c.UpdateDate, &completed,
		&c.Accepted, &c.Credited, &c.Picture,
	)
	if err != nil {
		return nil, err
	}
	c.Recurring = model.Recurrence(recurring)
	c.Status = model.ChallengeStatus(status)
	c.DueDate = fromNullTime(due)
	c.CompleteDate = fromNullTime(completed)
	return &c, nil
}

// PutChallenge inserts c or replaces every attribute of the stored row.
func (db *DB) PutChallenge(ctx context.Context, c *model.Challenge) error {
	q := sq.Insert(repository.TableChallenges).
		Columns(challengeColumns...).
		Values(
			c.ID, c.PartyID, c.Name, c.Description, int64(c.Points), c.Creator, c.CreateDate,
			nullTime(c.DueDate), string(c.Recurring), c.Owner, string(c.Status), c.UpdateDate,
			nullTime(c.CompleteDate), c.Accepted, c.Credited, c.Picture,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			party_id = excluded.party_id,
			name = excluded.name,
			description = excluded.description,
			points = excluded.points,
			creator = excluded.creator,
			create_date = excluded.create_date,
			due_date = excluded.due_date,
			recurring = excluded.recurring,
			owner = excluded.owner,
			status = excluded.status,
			update_date = excluded.update_date,
			complete_date = excluded.complete_date,
			accepted = excluded.accepted,
			credited = excluded.credited,
			picture = excluded.picture`)

	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building challenge upsert: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: putting challenge %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	query, args, err := sq.Select(challengeColumns...).
		From(repository.TableChallenges).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building challenge query: %w", err)
	}

	c, err := scanChallenge(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("challenge", id)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %s: %w", id, err)
	}
	return c, nil
}

// ListChallengesByParty pages through a party's challenges in id order.
func (db *DB) ListChallengesByParty(ctx context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Challenge], error) {
	q := sq.Select(challengeColumns...).
		From(repository.TableChallenges).
		Where(sq.Eq{"party_id": partyID})

	return page(ctx, db, q, "id", opts, func(rows *sql.Rows) (model.Challenge, string, error) {
		c, err := scanChallenge(rows)
		if err != nil {
			return model.Challenge{}, "", err
		}
		return *c, c.ID, nil
	})
}

// nullTime maps a nil pointer to SQL NULL.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
