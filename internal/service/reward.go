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

// CreateRewardInput is the body of a create-reward request.
type CreateRewardInput struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Cost        int    `json:"cost"        validate:"min=0,max=100000"`
	Recurring   string `json:"recurring"`
}

// RewardService manages rewards: unclaimed -> claimed -> redeemed.
type RewardService struct {
	rewards repository.RewardRepository
	parties repository.PartyRepository
	users   repository.UserRepository
	points  *PointsService
	logger  *slog.Logger
	now     func() time.Time
}

func NewRewardService(
	rewards repository.RewardRepository,
	parties repository.PartyRepository,
	users repository.UserRepository,
	points *PointsService,
	logger *slog.Logger,
) *RewardService {
	return &RewardService{
		rewards: rewards,
		parties: parties,
		users:   users,
		points:  points,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *RewardService) Create(ctx context.Context, caller, partyID string, in CreateRewardInput) (*model.Reward, error) {
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

	now := s.now()
	r := &model.Reward{
		ID:          xid.New().String(),
		PartyID:     partyID,
		Name:        in.Name,
		Description: in.Description,
		Cost:        in.Cost,
		Creator:     caller,
		CreateDate:  now,
		Recurring:   recurring,
		Status:      model.RewardUnclaimed,
		UpdateDate:  now,
	}
	if err := s.rewards.PutReward(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info("reward created", slog.String("reward_id", r.ID), slog.String("party_id", partyID))
	return r, nil
}

func (s *RewardService) List(ctx context.Context, caller, partyID string, opts repository.ListOptions) (*repository.Page[model.Reward], error) {
	if _, err := requireMember(ctx, s.users, caller, partyID); err != nil {
		return nil, err
	}
	return s.rewards.ListRewardsByParty(ctx, partyID, opts)
}

// Claim reserves an unclaimed reward for caller if they can afford it.
func (s *RewardService) Claim(ctx context.Context, caller, id string) (*model.Reward, error) {
	r, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RewardUnclaimed {
		return nil, apperror.ConflictMessage("reward is not available")
	}

	pts, err := s.points.compute(ctx, r.PartyID, caller)
	if err != nil {
		return nil, err
	}
	if pts.Available() < r.Cost {
		return nil, apperror.ConflictMessage("not enough points to claim this reward")
	}

	r.Recipient = caller
	r.Status = model.RewardClaimed
	r.UpdateDate = s.now()
	if err := s.rewards.PutReward(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Approve redeems a claimed reward. Only the reward's creator or the
// party owner may approve. A recurring reward is offered again.
func (s *RewardService) Approve(ctx context.Context, caller, id string) (*model.Reward, error) {
	r, err := s.load(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RewardClaimed {
		return nil, apperror.ConflictMessage("reward has not been claimed")
	}

	party, err := s.parties.GetPartyByID(ctx, r.PartyID)
	if err != nil {
		return nil, err
	}
	if caller != r.Creator && caller != party.Owner {
		return nil, apperror.Forbidden("only the reward creator or party owner can approve it")
	}

	r.Accepted = true
	r.Status = model.RewardRedeemed
	r.UpdateDate = s.now()
	if err := s.rewards.PutReward(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info("reward redeemed",
		slog.String("reward_id", r.ID),
		slog.String("recipient", r.Recipient),
		slog.Int("cost", r.Cost),
	)

	if r.Recurring != model.RecurrenceNone {
		now := s.now()
		again := *r
		again.ID = xid.New().String()
		again.CreateDate = now
		again.UpdateDate = now
		again.Recipient = ""
		again.Status = model.RewardUnclaimed
		again.Accepted = false
		if err := s.rewards.PutReward(ctx, &again); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (s *RewardService) load(ctx context.Context, caller, id string) (*model.Reward, error) {
	r, err := s.rewards.GetReward(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.users, caller, r.PartyID); err != nil {
		return nil, err
	}
	return r, nil
}
