package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON, every failure through
// writeError. Errors always have the same shape:
//   {"error": "conflict", "message": "Username already taken. ..."}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/repository"
)

// usernameGuidance follows a username conflict so the user knows what to do next.
const usernameGuidance = ". Please try again with a different username. If you are a returning user, please login."

// maxBodyBytes caps request bodies. Challenge pictures are the largest input.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable type, e.g. "not_found"
	Message string `json:"message"`         // shown to the user
	Field   string `json:"field,omitempty"` // set for validation errors
}

// PageResponse is one page of a listing. Next is the cursor for ?after=.
type PageResponse[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next,omitempty"`
}

func newPageResponse[T any](p *repository.Page[T]) PageResponse[T] {
	items := p.Items
	if items == nil {
		items = []T{}
	}
	return PageResponse[T]{Items: items, Next: p.Next}
}

// writeJSON sets headers and status before the body; header changes after
// the first Write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status. errors.Is walks the
// wrap chain, so services may wrap AppErrors with context freely.
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrAmbiguous    → 500 "registration failed"
//	anything else   → 500, details never leave the server
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	resp := ErrorResponse{Error: "internal_error", Message: appErr.Message}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, resp.Error, resp.Field = http.StatusBadRequest, "validation_error", appErr.Field
	case errors.Is(err, apperror.ErrUnauthorized):
		status, resp.Error = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, resp.Error = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, resp.Error = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, resp.Error = http.StatusConflict, "conflict"
		if appErr.Message == "Username already taken" {
			resp.Message += usernameGuidance
		}
	case errors.Is(err, apperror.ErrAmbiguous):
		resp.Message = "registration failed"
	default:
		resp.Message = "An internal error occurred"
	}

	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected so
// typos in field names surface as 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// listOptions reads ?limit= and ?after=. A malformed limit is a 400;
// range clamping is left to ListOptions.Normalize.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	opts := repository.ListOptions{After: r.URL.Query().Get("after")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, apperror.ValidationFailed("limit", "limit must be a number")
		}
		opts.Limit = n
	}
	return opts, nil
}
