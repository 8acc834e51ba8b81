package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
	"github.com/sakif/connection-points/internal/validation"
)

// CreatePartyInput is the body of a create-party request.
type CreatePartyInput struct {
	Name        string `json:"name"        validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=500"`
}

// JoinPartyInput identifies a party by name and proves the invite.
type JoinPartyInput struct {
	Name      string `json:"name"      validate:"required,max=64"`
	InviteKey string `json:"inviteKey" validate:"required"`
}

// PartyService manages parties and membership.
type PartyService struct {
	parties repository.PartyRepository
	users   repository.UserRepository
	logger  *slog.Logger
}

func NewPartyService(parties repository.PartyRepository, users repository.UserRepository, logger *slog.Logger) *PartyService {
	return &PartyService{parties: parties, users: users, logger: logger}
}

// Create makes a new active party owned by caller and adds caller to it.
// The returned party carries its invite key.
func (s *PartyService) Create(ctx context.Context, caller string, in CreatePartyInput) (*model.Party, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	inviteKey, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	party := &model.Party{
		Name:        in.Name,
		ID:          xid.New().String(),
		Description: in.Description,
		CreateDate:  now,
		Owner:       caller,
		Status:      model.PartyActive,
		UpdateDate:  now,
		InviteKey:   inviteKey,
	}

	if err := s.parties.CreateParty(ctx, party); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("Party name already taken")
		}
		return nil, err
	}
	if err := s.users.AddParty(ctx, caller, party.ID); err != nil {
		return nil, err
	}

	s.logger.Info("party created", slog.String("party_id", party.ID), slog.String("owner", caller))
	return party, nil
}

// Get returns a party the caller belongs to.
func (s *PartyService) Get(ctx context.Context, caller, partyID string) (*model.Party, error) {
	if _, err := requireMember(ctx, s.users, caller, partyID); err != nil {
		return nil, err
	}
	return s.parties.GetPartyByID(ctx, partyID)
}

// Join adds caller to the named party when the invite key matches.
func (s *PartyService) Join(ctx context.Context, caller string, in JoinPartyInput) (*model.Party, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	party, err := s.parties.GetParty(ctx, in.Name)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Same answer as a wrong key so names cannot be probed.
			return nil, apperror.Forbidden("invalid party name or invite key")
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(party.InviteKey), []byte(in.InviteKey)) != 1 {
		return nil, apperror.Forbidden("invalid party name or invite key")
	}
	if party.Status != model.PartyActive {
		return nil, apperror.Forbidden("party is archived")
	}

	if err := s.users.AddParty(ctx, caller, party.ID); err != nil {
		return nil, err
	}
	s.logger.Info("party joined", slog.String("party_id", party.ID), slog.String("user", caller))
	return party, nil
}

// requireMember loads caller and checks that it belongs to partyID.
func requireMember(ctx context.Context, users repository.UserRepository, caller, partyID string) (*model.User, error) {
	user, err := users.GetUserByEmail(ctx, caller)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("valid authentication required")
		}
		return nil, err
	}
	if !user.MemberOf(partyID) {
		return nil, apperror.Forbidden("not a member of this party")
	}
	return user, nil
}
