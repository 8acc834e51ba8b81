// Package repository declares the storage contract consumed by the service
// layer. Implementations live in sub-packages (sqlite, dynamo); services
// only ever see these interfaces.
package repository

import (
	"context"

	"github.com/sakif/connection-points/internal/model"
)

// Table names. Bootstrap provisions every entry in Tables.
const (
	TableChallenges = "challenges"
	TableParties    = "parties"
	TableRewards    = "rewards"
	TableUsers      = "users"
	TableAuthConfig = "auth_config"
)

// Tables lists every schema in provisioning order.
var Tables = []string{TableChallenges, TableParties, TableRewards, TableUsers, TableAuthConfig}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListOptions selects one page of a keyed listing.
// After is the opaque cursor returned by the previous page ("" = first page).
type ListOptions struct {
	Limit int
	After string
}

// Normalize clamps Limit into [1, MaxListLimit], defaulting to DefaultListLimit.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	return o
}

// Page is one page of results. Next is "" on the last page.
type Page[T any] struct {
	Items []T
	Next  string
}

// SchemaManager provisions tables. CreateTable on an existing table must
// be a no-op so that concurrent instances can race safely.
type SchemaManager interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string) error
}

type AuthConfigRepository interface {
	// GetAuthConfig returns apperror.ErrNotFound when no row exists.
	GetAuthConfig(ctx context.Context, name string) (*model.AuthConfig, error)
	// CreateAuthConfig returns apperror.ErrConflict if a row with the same
	// name already exists; the existing row is left untouched.
	CreateAuthConfig(ctx context.Context, cfg *model.AuthConfig) error
}

type UserRepository interface {
	// CreateUser returns apperror.ErrConflict on a duplicate email.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// GetUserByName queries the secondary name index.
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	ListUsers(ctx context.Context, opts ListOptions) (*Page[model.User], error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	AddParty(ctx context.Context, email, partyID string) error
}

type PartyRepository interface {
	// CreateParty returns apperror.ErrConflict on a duplicate name.
	CreateParty(ctx context.Context, party *model.Party) error
	GetParty(ctx context.Context, name string) (*model.Party, error)
	GetPartyByID(ctx context.Context, id string) (*model.Party, error)
	UpdateParty(ctx context.Context, party *model.Party) error
}

type ChallengeRepository interface {
	PutChallenge(ctx context.Context, c *model.Challenge) error
	GetChallenge(ctx context.Context, id string) (*model.Challenge, error)
	ListChallengesByParty(ctx context.Context, partyID string, opts ListOptions) (*Page[model.Challenge], error)
}

type RewardRepository interface {
	PutReward(ctx context.Context, r *model.Reward) error
	GetReward(ctx context.Context, id string) (*model.Reward, error)
	ListRewardsByParty(ctx context.Context, partyID string, opts ListOptions) (*Page[model.Reward], error)
}

// Store is everything a backend provides.
type Store interface {
	SchemaManager
	AuthConfigRepository
	UserRepository
	PartyRepository
	ChallengeRepository
	RewardRepository
	Close() error
}
