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

type Challenges interface {
	Create(ctx context.Context, caller, partyID string, in service.CreateChallengeInput) (*model.Challenge, error)
	List(ctx context.Context, caller, partyID string, opts repository.ListOptions) (*repository.Page[model.Challenge], error)
	Accept(ctx context.Context, caller, id string) (*model.Challenge, error)
	Complete(ctx context.Context, caller, id string) (*model.Challenge, error)
	Credit(ctx context.Context, caller, id string) (*model.Challenge, error)
}

// ChallengeHandler serves challenge creation, listing and the
// accept → complete → credit transitions.
type ChallengeHandler struct {
	challenges Challenges
	logger     *slog.Logger
}

func NewChallengeHandler(challenges Challenges, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

// HTTP: POST /api/parties/{partyID}/challenges
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.CreateChallengeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.challenges.Create(r.Context(), email, chi.URLParam(r, "partyID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: GET /api/parties/{partyID}/challenges?limit=&after=
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.challenges.List(r.Context(), email, chi.URLParam(r, "partyID"), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page))
}

// HTTP: POST /api/challenges/{id}/accept
func (h *ChallengeHandler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challenges.Accept)
}

// HTTP: POST /api/challenges/{id}/complete
func (h *ChallengeHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challenges.Complete)
}

// HTTP: POST /api/challenges/{id}/credit
func (h *ChallengeHandler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.challenges.Credit)
}

func (h *ChallengeHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, caller, id string) (*model.Challenge, error),
) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	c, err := op(r.Context(), email, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
