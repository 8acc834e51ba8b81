package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/service"
)

type Parties interface {
	Create(ctx context.Context, caller string, in service.CreatePartyInput) (*model.Party, error)
	Get(ctx context.Context, caller, partyID string) (*model.Party, error)
	Join(ctx context.Context, caller string, in service.JoinPartyInput) (*model.Party, error)
}

type Balances interface {
	Balance(ctx context.Context, caller, partyID string) (*service.Points, error)
}

// createdParty includes the invite key, which model.Party never serialises.
// Only the creator sees it, once.
type createdParty struct {
	*model.Party
	InviteKey string `json:"inviteKey"`
}

// PartyHandler serves /api/parties.
type PartyHandler struct {
	parties Parties
	points  Balances
	logger  *slog.Logger
}

func NewPartyHandler(parties Parties, points Balances, logger *slog.Logger) *PartyHandler {
	return &PartyHandler{parties: parties, points: points, logger: logger}
}

// HandleCreate creates a party owned by the caller.
//
// HTTP: POST /api/parties
func (h *PartyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.CreatePartyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	party, err := h.parties.Create(r.Context(), email, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdParty{Party: party, InviteKey: party.InviteKey})
}

// HTTP: GET /api/parties/{partyID}
func (h *PartyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	party, err := h.parties.Get(r.Context(), email, chi.URLParam(r, "partyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, party)
}

// HandleJoin adds the caller to a party using its name and invite key.
//
// HTTP: POST /api/parties/join
func (h *PartyHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	var in service.JoinPartyInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	party, err := h.parties.Join(r.Context(), email, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, party)
}

// HandlePoints returns the caller's points in a party.
//
// HTTP: GET /api/parties/{partyID}/points
func (h *PartyHandler) HandlePoints(w http.ResponseWriter, r *http.Request) {
	email, ok := caller(w, r)
	if !ok {
		return
	}
	pts, err := h.points.Balance(r.Context(), email, chi.URLParam(r, "partyID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pts)
}
