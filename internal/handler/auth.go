package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/service"
	"github.com/sakif/connection-points/internal/validation"
)

const stateCookieName = "oauth_state"

// Identity is the account side of the service layer.
type Identity interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.Session, error)
	ForgotPassword(ctx context.Context, username string) error
	LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.Session, error)
	CurrentUser(ctx context.Context, email string) (*model.User, error)
}

// GitHub runs the OAuth code flow. *auth.GitHubProvider implements it.
type GitHub interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"required,max=72"`
}

// ForgotPasswordInput is the body of POST /auth/forgot-password.
type ForgotPasswordInput struct {
	Username string `json:"username" validate:"required,max=32"`
}

// AuthHandler serves registration, login, logout, password resets and
// the optional GitHub sign-in.
//
// ROUTES:
//   - POST /auth/register         → HandleRegister
//   - POST /auth/login            → HandleLogin, sets the session cookie
//   - POST /auth/logout           → HandleLogout, clears it
//   - POST /auth/forgot-password  → HandleForgotPassword
//   - GET  /auth/github/login     → HandleGitHubLogin
//   - GET  /auth/github/callback  → HandleGitHubCallback
//   - GET  /api/me                → HandleMe
type AuthHandler struct {
	identity   Identity
	github     GitHub // nil when GitHub sign-in is not configured
	cookieName string
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(identity Identity, github GitHub, cookieName string, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		identity:   identity,
		github:     github,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// GitHubEnabled reports whether the GitHub routes should be mounted.
func (h *AuthHandler) GitHubEnabled() bool { return h.github != nil }

// HandleRegister creates an account.
//
// HTTP: POST /auth/register
// BODY: {"email", "username", "displayName", "password", "passwordRepeat"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.identity.Register(r.Context(), in)
	if err != nil {
		h.logger.Info("registration rejected",
			slog.String("username", in.Username),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks credentials and sets the session cookie.
//
// HTTP: POST /auth/login
// BODY: {"username", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.identity.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(h.cookieName, session.Token, h.sessionTTL))
	writeJSON(w, http.StatusOK, session.User)
}

// HandleLogout clears the session cookie. The token itself stays valid
// until it expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ExpiredCookie(h.cookieName))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleForgotPassword mails the user a new random password.
//
// HTTP: POST /auth/forgot-password
// BODY: {"username"}
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in ForgotPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.Struct(in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.identity.ForgotPassword(r.Context(), in.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "A new password has been emailed to you"})
}

// HandleGitHubLogin redirects to GitHub's consent page. The random state
// goes into a short-lived cookie and is checked on callback.
//
// HTTP: GET /auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow and signs in the account
// whose email matches the GitHub profile.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	session, err := h.identity.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.String("username", session.User.Name),
		slog.String("github_login", ghUser.Login),
	)
	http.SetCookie(w, auth.SessionCookie(h.cookieName, session.Token, h.sessionTTL))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	email, _ := auth.EmailFromContext(r.Context())
	user, err := h.identity.CurrentUser(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// caller returns the authenticated email, writing a 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return email, ok
}
