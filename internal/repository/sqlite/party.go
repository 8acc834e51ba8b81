package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
)

const partyColumns = `name, id, description, create_date, owner, status, update_date, invite_key`

func scanParty(row rowScanner) (*model.Party, error) {
	var (
		p      model.Party
		status string
	)
	err := row.Scan(&p.Name, &p.ID, &p.Description, &p.CreateDate, &p.Owner, &status, &p.UpdateDate, &p.InviteKey)
	if err != nil {
		return nil, err
	}
	p.Status = model.PartyStatus(status)
	return &p, nil
}

// CreateParty inserts a party. Names are unique; a duplicate yields
// apperror.ErrConflict.
func (db *DB) CreateParty(ctx context.Context, party *model.Party) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO parties (`+partyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		party.Name,
		party.ID,
		party.Description,
		party.CreateDate,
		party.Owner,
		string(party.Status),
		party.UpdateDate,
		party.InviteKey,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating party %s: %w", party.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: creating party %s: %w", party.Name, err)
	}
	if n == 0 {
		return apperror.Conflict("party", party.Name)
	}
	return nil
}

func (db *DB) GetParty(ctx context.Context, name string) (*model.Party, error) {
	return db.getParty(ctx, "name", name)
}

func (db *DB) GetPartyByID(ctx context.Context, id string) (*model.Party, error) {
	return db.getParty(ctx, "id", id)
}

func (db *DB) getParty(ctx context.Context, column, value string) (*model.Party, error) {
	p, err := scanParty(db.conn.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE `+column+` = ?`, value,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("party", value)
		}
		return nil, fmt.Errorf("sqlite: getting party %s: %w", value, err)
	}
	return p, nil
}

// UpdateParty overwrites the mutable attributes of an existing party.
func (db *DB) UpdateParty(ctx context.Context, party *model.Party) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE parties
		 SET description = ?, owner = ?, status = ?, update_date = ?, invite_key = ?
		 WHERE name = ?`,
		party.Description,
		party.Owner,
		string(party.Status),
		party.UpdateDate,
		party.InviteKey,
		party.Name,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating party %s: %w", party.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating party %s: %w", party.Name, err)
	}
	if n == 0 {
		return apperror.NotFound("party", party.Name)
	}
	return nil
}
