package service

import (
	"context"

	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

// Points is a member's standing within one party.
type Points struct {
	// Earned is the sum of credited challenges the member owns.
	Earned int `json:"earned"`
	// Spent is the cost of the member's redeemed rewards.
	Spent int `json:"spent"`
	// Pending is the cost of claimed rewards awaiting approval.
	Pending int `json:"pending"`
	Balance int `json:"balance"`
}

// Available is what the member can still claim against.
func (p Points) Available() int {
	return p.Balance - p.Pending
}

type PointsService struct {
	challenges repository.ChallengeRepository
	rewards    repository.RewardRepository
	users      repository.UserRepository
}

func NewPointsService(challenges repository.ChallengeRepository, rewards repository.RewardRepository, users repository.UserRepository) *PointsService {
	return &PointsService{challenges: challenges, rewards: rewards, users: users}
}

// Balance returns the caller's points in partyID.
func (s *PointsService) Balance(ctx context.Context, caller, partyID string) (*Points, error) {
	if _, err := requireMember(ctx, s.users, caller, partyID); err != nil {
		return nil, err
	}
	return s.compute(ctx, partyID, caller)
}

func (s *PointsService) compute(ctx context.Context, partyID, email string) (*Points, error) {
	var p Points

	err := forEachPage(ctx,
		func(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.Challenge], error) {
			return s.challenges.ListChallengesByParty(ctx, partyID, opts)
		},
		func(c model.Challenge) {
			if c.Credited && c.Owner == email {
				p.Earned += c.Points
			}
		},
	)
	if err != nil {
		return nil, err
	}

	err = forEachPage(ctx,
		func(ctx context.Context, opts repository.ListOptions) (*repository.Page[model.Reward], error) {
			return s.rewards.ListRewardsByParty(ctx, partyID, opts)
		},
		func(r model.Reward) {
			if r.Recipient != email {
				return
			}
			switch {
			case r.Status == model.RewardRedeemed && r.Accepted:
				p.Spent += r.Cost
			case r.Status == model.RewardClaimed:
				p.Pending += r.Cost
			}
		},
	)
	if err != nil {
		return nil, err
	}

	p.Balance = p.Earned - p.Spent
	return &p, nil
}

// forEachPage walks every page of a keyed listing.
func forEachPage[T any](
	ctx context.Context,
	list func(context.Context, repository.ListOptions) (*repository.Page[T], error),
	fn func(T),
) error {
	opts := repository.ListOptions{Limit: repository.MaxListLimit}
	for {
		page, err := list(ctx, opts)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			fn(item)
		}
		if page.Next == "" {
			return nil
		}
		opts.After = page.Next
	}
}
