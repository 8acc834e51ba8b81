package auth

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/validation"
)

// ErrIncorrectCredentials is returned by Login for an unknown username or a
// wrong password. The two cases are not distinguished.
var ErrIncorrectCredentials = errors.New("auth: username/password is incorrect")

// Credential is the login record for one username.
type Credential struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// Credentials maps usernames to their login records.
type Credentials map[string]Credential

// Usernames returns the usernames in sorted order.
func (c Credentials) Usernames() []string {
	return slices.Sorted(maps.Keys(c))
}

// RegisterInput is a registration form submission.
type RegisterInput struct {
	Email          string `json:"email"          validate:"required,email,max=254"`
	Username       string `json:"username"       validate:"required,alphanum,min=3,max=32"`
	DisplayName    string `json:"displayName"    validate:"max=64"`
	Password       string `json:"password"       validate:"required,max=72"`
	PasswordRepeat string `json:"passwordRepeat" validate:"required,eqfield=Password"`
}

// Authenticator owns one snapshot of the credential set. It is built per
// request from freshly loaded credentials; registration and password
// resets mutate the snapshot, and callers persist the result.
type Authenticator struct {
	mu         sync.Mutex
	creds      Credentials
	cookieName string
	tokens     *TokenService
	passwords  *PasswordService
}

func NewAuthenticator(creds Credentials, cookieName string, tokens *TokenService, passwords *PasswordService) *Authenticator {
	if creds == nil {
		creds = Credentials{}
	}
	return &Authenticator{
		creds:      maps.Clone(creds),
		cookieName: cookieName,
		tokens:     tokens,
		passwords:  passwords,
	}
}

// Credentials returns a copy of the current credential set.
func (a *Authenticator) Credentials() Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.creds)
}

// Lookup returns the credential for username.
func (a *Authenticator) Lookup(username string) (Credential, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.creds[username]
	return c, ok
}

// Login checks the password for username and returns a signed session token.
func (a *Authenticator) Login(username, password string) (string, error) {
	cred, ok := a.Lookup(username)
	if !ok {
		return "", ErrIncorrectCredentials
	}
	if err := a.passwords.Verify(cred.PasswordHash, password); err != nil {
		return "", ErrIncorrectCredentials
	}
	return a.tokens.Generate(cred.Email)
}

// RegisterUser validates in and adds it to the credential set. A username
// or email that is already present is a conflict.
func (a *Authenticator) RegisterUser(in RegisterInput) error {
	if err := validation.Struct(in); err != nil {
		return err
	}

	hash, err := a.passwords.Hash(in.Password)
	if err != nil {
		return err
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = in.Username
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, taken := a.creds[in.Username]; taken {
		return apperror.ConflictMessage("Username already taken")
	}
	for _, c := range a.creds {
		if strings.EqualFold(c.Email, in.Email) {
			return apperror.ConflictMessage("Email already registered")
		}
	}

	a.creds[in.Username] = Credential{
		Email:        in.Email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	return nil
}

// ForgotPassword replaces the password of username with a random one and
// returns the username, its email and the new plaintext password.
func (a *Authenticator) ForgotPassword(username string) (string, string, string, error) {
	if username == "" {
		return "", "", "", apperror.ValidationFailed("username", "username is required")
	}

	newPassword, err := RandomPassword()
	if err != nil {
		return "", "", "", err
	}
	hash, err := a.passwords.Hash(newPassword)
	if err != nil {
		return "", "", "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cred, ok := a.creds[username]
	if !ok {
		return "", "", "", apperror.NotFoundMessage("Username not found")
	}
	cred.PasswordHash = hash
	a.creds[username] = cred
	return username, cred.Email, newPassword, nil
}

// Validate returns the email a session token was issued for.
func (a *Authenticator) Validate(token string) (string, error) {
	return a.tokens.Validate(token)
}

func (a *Authenticator) CookieName() string { return a.cookieName }

// SessionCookie wraps a token in the session cookie.
func (a *Authenticator) SessionCookie(token string) *http.Cookie {
	return SessionCookie(a.cookieName, token, a.tokens.TTL())
}

// Logout returns a cookie that clears the session.
func (a *Authenticator) Logout() *http.Cookie {
	return ExpiredCookie(a.cookieName)
}

// SessionCookie builds the HttpOnly cookie carrying a session token.
func SessionCookie(name, token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

// ExpiredCookie builds a cookie that makes the browser drop name.
func ExpiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}

// NewUsername returns the single username present in exactly one of
// before and after. Zero or several differences mean the registration
// outcome cannot be attributed and yield apperror.ErrAmbiguous.
func NewUsername(before, after []string) (string, error) {
	seen := make(map[string]int, len(before)+len(after))
	for _, u := range before {
		seen[u] |= 1
	}
	for _, u := range after {
		seen[u] |= 2
	}

	var diff []string
	for u, mask := range seen {
		if mask != 3 {
			diff = append(diff, u)
		}
	}

	switch len(diff) {
	case 1:
		return diff[0], nil
	case 0:
		return "", apperror.Ambiguous("no new user was registered")
	default:
		return "", apperror.Ambiguous(fmt.Sprintf("expected one new user, found %d", len(diff)))
	}
}
