package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
	"github.com/sakif/connection-points/internal/service"
)

type Rewards interface {
	Create(ctx context.Context, caller, partyID string, in service.CreateRewardInput) (*model.Reward, error)
	List(ctx context.Context, caller, partyID string, opts repository.ListOptions) (*repository.Page[model.Reward], error)
	Claim(ctx context.Context, caller, id string) (*model.Reward, error)
	Approve(ctx context.Context, caller, id string) (*model.Reward, error)
}

type RewardHandler struct {
	rewards Rewards
	logger  *slog.Logger
}

func NewRewardHandler(rewards Rewards, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, logger: logger}
}

// HTTP: POST /api/parties/{partyID}/rewards
func (h *RewardHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.CreateRewardInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	reward, err := h.rewards.Create(r.Context(), email, chi.URLParam(r, "partyID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

// HTTP: GET /api/parties/{partyID}/rewards?limit=&after=
func (h *RewardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.rewards.List(r.Context(), email, chi.URLParam(r, "partyID"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

// HTTP: POST /api/rewards/{id}/claim
func (h *RewardHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	reward, err := h.rewards.Claim(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

// HTTP: POST /api/rewards/{id}/approve
func (h *RewardHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	reward, err := h.rewards.Approve(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}
