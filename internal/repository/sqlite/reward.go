package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

var rewardColumns = []string{
	"id", "party_id", "name", "description", "cost", "creator", "create_date",
	"recurring", "recipient", "status", "update_date", "accepted",
}

func scanReward(row rowScanner) (*model.Reward, error) {
	var (
		r                 model.Reward
		recurring, status string
	)
	err := row.Scan(
		&r.ID, &r.PartyID, &r.Name, &r.Description, &r.Cost, &r.Creator, &r.CreateDate,
		&recurring, &r.Recipient, &status, &r.UpdateDate, &r.Accepted,
	)
	if err != nil {
		return nil, err
	}
	r.Recurring = model.Recurrence(recurring)
	r.Status = model.RewardStatus(status)
	return &r, nil
}

// PutReward inserts r or replaces every attribute of the stored row.
func (db *DB) PutReward(ctx context.Context, r *model.Reward) error {
	query, args, err := sq.Insert(repository.TableRewards).
		Columns(rewardColumns...).
		Values(
			r.ID, r.PartyID, r.Name, r.Description, int64(r.Cost), r.Creator, r.CreateDate,
			string(r.Recurring), r.Recipient, string(r.Status), r.UpdateDate, r.Accepted,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			party_id = excluded.party_id,
			name = excluded.name,
			description = excluded.description,
			cost = excluded.cost,
			creator = excluded.creator,
			create_date = excluded.create_date,
			recurring = excluded.recurring,
			recipient = excluded.recipient,
			status = excluded.status,
			update_date = excluded.update_date,
			accepted = excluded.accepted`).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building reward upsert: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: putting reward %s: %w", r.ID, err)
	}
	return nil
}

func (db *DB) GetReward(ctx context.Context, id string) (*model.Reward, error) {
	query, args, err := sq.Select(rewardColumns...).
		From(repository.TableRewards).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building reward query: %w", err)
	}

	r, err := scanReward(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("reward", id)
		}
		return nil, fmt.Errorf("sqlite: getting reward %s: %w", id, err)
	}
	return r, nil
}

func (db *DB) ListRewardsByParty(ctx context.Context, partyID string, opts repository.ListOptions) (*repository.Page[model.Reward], error) {
	q := sq.Select(rewardColumns...).
		From(repository.TableRewards).
		Where(sq.Eq{"party_id": partyID})

	return page(ctx, db, q, "id", opts, func(rows *sql.Rows) (model.Reward, string, error) {
		r, err := scanReward(rows)
		if err != nil {
			return model.Reward{}, "", err
		}
		return *r, r.ID, nil
	})
}
