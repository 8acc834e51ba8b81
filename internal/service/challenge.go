package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
	"github.com/sakif/connection-points/internal/validation"
)

// MaxPictureBytes bounds the picture stored with a challenge.
const MaxPictureBytes = 256 * 1024

// CreateChallengeInput is the body of a create-challenge request.
type CreateChallengeInput struct {
	Name        string     `json:"name"        validate:"required,max=100"`
	Description string     `json:"description" validate:"max=1000"`
	Points      int        `json:"points"      validate:"min=0,max=100000"`
	DueDate     *time.Time `json:"dueDate"`
	Recurring   string     `json:"recurring"`
	Picture     []byte     `json:"picture"`
}

// ChallengeService manages the challenge lifecycle:
// open -> accepted (by its owner) -> completed -> credited.
type ChallengeService struct {
	challenges repository.ChallengeRepository
	parties    repository.PartyRepository
	users      repository.UserRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewChallengeService(
	challenges repository.ChallengeRepository,
	parties repository.PartyRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ChallengeService {
	return &ChallengeService{
		challenges: challenges,
		parties:    parties,
		users:      users,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChallengeService) Create(ctx context.Context, caller, partyID string, in CreateChallengeInput) (*model.Challenge, error) {
	if _, err := requireMember(ctx, s.users, caller, partyID); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	recurring, err := model.ParseRecurrence(in.Recurring)
	if err != nil {
		return nil, apperror.ValidationFailed("recurring", "recurring must be one of: none, daily, weekly, monthly, yearly")
	}
	if len(in.Picture) > MaxPictureBytes {
		return nil, apperror.ValidationFailed("picture", "picture is too large")
	}

	now := s.now()
	c := &model.Challenge{
		ID:          xid.New().String(),
		PartyID:     partyID,
		Name:        in.Name,
		Description: in.Description,
		Points:      in.Points,
		Creator:     caller,
		CreateDate:  now,
		DueDate:     in.DueDate,
		Recurring:   recurring,
		Status:      model.ChallengeOpen,
		UpdateDate:  now,
		Picture:     in.Picture,
	}
	if err := s.challenges.PutChallenge(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("challenge created", slog.String("challenge_id", c.ID), slog.String("party_id", partyID))
	return c, nil
}

func (s *ChallengeService) List(ctx context.Context, caller, partyID string, opts repository.ListOptions) (*repository.Page[model.Challenge], error) {
	if _, err := requireMember(ctx, s.users, caller, partyID); err != nil {
		return nil, err
	}
	return s.challenges.ListChallengesByParty(ctx, partyID, opts)
}

// Accept makes caller the owner of an open challenge.
func (s *ChallengeService) Accept(ctx context.Context, caller, id string) (*model.Challenge, error) {
	c, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ChallengeOpen {
		return nil, apperror.ConflictMessage("challenge is not open")
	}

	c.Owner = caller
	c.Accepted = true
	c.Status = model.ChallengeAccepted
	c.UpdateDate = s.now()
	if err := s.challenges.PutChallenge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Complete marks the caller's accepted challenge as done.
func (s *ChallengeService) Complete(ctx context.Context, caller, id string) (*model.Challenge, error) {
	c, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ChallengeAccepted {
		return nil, apperror.ConflictMessage("challenge has not been accepted")
	}
	if c.Owner != caller {
		return nil, apperror.Forbidden("only the member who accepted the challenge can complete it")
	}

	now := s.now()
	c.Status = model.ChallengeCompleted
	c.CompleteDate = &now
	c.UpdateDate = now
	if err := s.challenges.PutChallenge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Credit awards the points of a completed challenge to its owner. The party
// owner may credit any challenge; its creator may credit it unless the
// creator also did the work. A recurring challenge gets its next
// occurrence created.
func (s *ChallengeService) Credit(ctx context.Context, caller, id string) (*model.Challenge, error) {
	c, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ChallengeCompleted {
		return nil, apperror.ConflictMessage("challenge is not completed")
	}
	if c.Credited {
		return nil, apperror.ConflictMessage("challenge is already credited")
	}

	party, err := s.parties.GetPartyByID(ctx, c.PartyID)
	if err != nil {
		return nil, err
	}
	if caller != c.Creator && caller != party.Owner {
		return nil, apperror.Forbidden("only the challenge creator or party owner can credit points")
	}
	if caller == c.Owner && caller != party.Owner {
		return nil, apperror.Forbidden("members cannot credit their own challenges")
	}

	c.Credited = true
	c.UpdateDate = s.now()
	if err := s.challenges.PutChallenge(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("challenge credited",
		slog.String("challenge_id", c.ID),
		slog.String("owner", c.Owner),
		slog.Int("points", c.Points),
	)

	if err := s.scheduleNext(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// scheduleNext creates the next open occurrence of a recurring challenge.
func (s *ChallengeService) scheduleNext(ctx context.Context, c *model.Challenge) error {
	base := c.UpdateDate
	if c.DueDate != nil {
		base = *c.DueDate
	}
	nextDue, ok := c.Recurring.Next(base)
	if !ok {
		return nil
	}

	now := s.now()
	next := &model.Challenge{
		ID:          xid.New().String(),
		PartyID:     c.PartyID,
		Name:        c.Name,
		Description: c.Description,
		Points:      c.Points,
		Creator:     c.Creator,
		CreateDate:  now,
		DueDate:     &nextDue,
		Recurring:   c.Recurring,
		Status:      model.ChallengeOpen,
		UpdateDate:  now,
		Picture:     c.Picture,
	}
	return s.challenges.PutChallenge(ctx, next)
}

func (s *ChallengeService) load(ctx context.Context, caller, id string) (*model.Challenge, error) {
	c, err := s.challenges.GetChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.users, caller, c.PartyID); err != nil {
		return nil, err
	}
	return c, nil
}
