package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

const (
	// credentialPageSize is the page size used when loading credentials.
	credentialPageSize = 100
	// DefaultMaxCredentialUsers bounds LoadCredentials when no limit is set.
	DefaultMaxCredentialUsers = 10000
)

const incorrectCredentialsMessage = "Username/password is incorrect. If you are a new user, please register."

// Notifier delivers password reset mail.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, newPassword string) error
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  *model.User
}

// IdentityService handles registration, login and password resets.
type IdentityService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	notifier   Notifier
	cookieName string
	maxUsers   int
	logger     *slog.Logger
}

// NewIdentityService builds the service around the bootstrapped AuthConfig.
// maxUsers <= 0 uses DefaultMaxCredentialUsers.
func NewIdentityService(
	users repository.UserRepository,
	cfg *model.AuthConfig,
	passwords *auth.PasswordService,
	notifier Notifier,
	maxUsers int,
	logger *slog.Logger,
) (*IdentityService, error) {
	tokens, err := auth.NewTokenService(cfg.Key, cfg.ExpiryDays)
	if err != nil {
		return nil, err
	}
	if maxUsers <= 0 {
		maxUsers = DefaultMaxCredentialUsers
	}
	return &IdentityService{
		users:      users,
		tokens:     tokens,
		passwords:  passwords,
		notifier:   notifier,
		cookieName: cfg.Name,
		maxUsers:   maxUsers,
		logger:     logger,
	}, nil
}

// Tokens exposes the session token service for the auth middleware.
func (s *IdentityService) Tokens() *auth.TokenService { return s.tokens }

// CookieName is the session cookie name.
func (s *IdentityService) CookieName() string { return s.cookieName }

// LoadCredentials reads every user into a credential set, one page at a
// time. More than maxUsers users is an error rather than a partial set.
func (s *IdentityService) LoadCredentials(ctx context.Context) (auth.Credentials, error) {
	creds := auth.Credentials{}
	opts := repository.ListOptions{Limit: credentialPageSize}
	count := 0

	for {
		page, err := s.users.ListUsers(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		for _, u := range page.Items {
			count++
			if count > s.maxUsers {
				return nil, fmt.Errorf("loading credentials: more than %d users", s.maxUsers)
			}
			creds[u.Name] = auth.Credential{
				Email:        u.Email,
				DisplayName:  u.DisplayName,
				PasswordHash: u.Password,
			}
		}
		if page.Next == "" {
			return creds, nil
		}
		opts.After = page.Next
	}
}

func (s *IdentityService) authenticator(creds auth.Credentials) *auth.Authenticator {
	return auth.NewAuthenticator(creds, s.cookieName, s.tokens, s.passwords)
}

// Register creates an account. The credential set is loaded fresh, the
// registration is applied to it, and the one username it added is
// persisted as a new User.
func (s *IdentityService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.DisplayName = strings.TrimSpace(in.DisplayName)

	creds, err := s.LoadCredentials(ctx)
	if err != nil {
		return nil, err
	}
	before := creds.Usernames()

	a := s.authenticator(creds)
	if err := a.RegisterUser(in); err != nil {
		return nil, err
	}

	after := a.Credentials()
	username, err := auth.NewUsername(before, after.Usernames())
	if err != nil {
		s.logger.Error("registration produced an unexpected credential set",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	info := after[username]

	user := &model.User{
		Email:       info.Email,
		Name:        username,
		DisplayName: info.DisplayName,
		Password:    info.PasswordHash,
		Parties:     []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ConflictMessage("Email already registered")
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.String("username", username))
	return user, nil
}

// Login authenticates username through the name index and issues a
// session token.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Unauthorized(incorrectCredentialsMessage)
	}

	user, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(incorrectCredentialsMessage)
		}
		return nil, err
	}

	a := s.authenticator(auth.Credentials{user.Name: {
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: user.Password,
	}})
	token, err := a.Login(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrIncorrectCredentials) {
			return nil, apperror.Unauthorized(incorrectCredentialsMessage)
		}
		return nil, err
	}

	return &Session{Token: token, User: user}, nil
}

// ForgotPassword assigns username a random password and mails it.
func (s *IdentityService) ForgotPassword(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}

	user, err := s.users.GetUserByName(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage("Username not found")
		}
		return err
	}

	a := s.authenticator(auth.Credentials{user.Name: {Email: user.Email, DisplayName: user.DisplayName}})
	_, email, newPassword, err := a.ForgotPassword(user.Name)
	if err != nil {
		return err
	}
	return s.ResetPassword(ctx, email, newPassword)
}

// ResetPassword stores the bcrypt hash of newPassword for email and sends
// exactly one notification containing the plaintext. An unknown email
// sends nothing.
func (s *IdentityService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, email, newPassword); err != nil {
		s.logger.Error("password reset email failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("sending password reset: %w", err)
	}
	s.logger.Info("password reset", slog.String("email", email))
	return nil
}

// LoginWithGitHub signs in the account whose email matches the GitHub
// profile. No account is created from a GitHub identity alone.
func (s *IdentityService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*Session, error) {
	if gh == nil {
		return nil, apperror.ValidationFailed("github_user", "GitHub user is required")
	}
	if gh.Email == "" {
		return nil, apperror.NotFoundMessage("GitHub account has no public email; register with a username and password")
	}

	user, err := s.users.GetUserByEmail(ctx, gh.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("No account uses this GitHub email. Please register first.")
		}
		return nil, err
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// CurrentUser loads the account behind an authenticated session.
func (s *IdentityService) CurrentUser(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	return s.users.GetUserByEmail(ctx, email)
}
