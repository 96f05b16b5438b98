// Package session owns the client's authentication state: the one-time
// startup restoration from the credential store, the login/register/logout
// mutators, and the synchronous push of the bearer credential into the API
// client. All other packages see the session only through read-only
// snapshots.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"cryptodash/internal/api"
	"cryptodash/internal/domain"
)

// AuthError is a user-displayable authentication failure: bad credentials,
// duplicate account, or an unreachable server. It never alters session
// state and is never fatal.
type AuthError struct {
	Message string
	err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.err }

// newAuthError prefers the server-provided message, falling back to a
// generic one for transport-level failures.
func newAuthError(err error, fallback string) *AuthError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &AuthError{Message: apiErr.Message, err: err}
	}
	return &AuthError{Message: fallback, err: err}
}

// Store holds the session and is its sole mutator. Mutators run to
// completion under the lock, so the credential installed on the API client
// and the session state always change as one ordered step: no caller can
// observe a session whose token disagrees with the outgoing header.
type Store struct {
	mu          sync.Mutex
	session     domain.Session
	client      *api.Client
	creds       *CredentialStore
	log         *slog.Logger
	initialized bool
}

// NewStore creates a session store. The session reports Loading until
// Initialize has run.
func NewStore(client *api.Client, creds *CredentialStore, log *slog.Logger) *Store {
	return &Store{
		session: domain.Session{Loading: true},
		client:  client,
		creds:   creds,
		log:     log,
	}
}

// Initialize restores the persisted session, if any. It must run before any
// other component reads session state; Loading settles to false exactly
// once here and never reverts. Calling Initialize again is a no-op.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	s.initialized = true

	token, username, err := s.creds.Load()
	if err != nil {
		// An unreadable store degrades to an unauthenticated session.
		s.session = domain.Session{}
		return err
	}

	if token != "" && username != "" {
		s.client.SetToken(token)
		s.session = domain.Session{
			Authenticated: true,
			Token:         token,
			User:          &domain.User{Username: username},
		}
		s.log.Debug("session restored", "username", username)
	} else {
		s.session = domain.Session{}
	}
	return nil
}

// Login authenticates against the platform. On success the token and
// username are persisted, the bearer credential is installed on the API
// client, and the session becomes authenticated. On failure the session is
// left unchanged and an *AuthError carries the server message (or a generic
// fallback for unreachable-network conditions).
func (s *Store) Login(ctx context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return newAuthError(err, "Login failed")
	}

	if err := s.creds.Save(resp.Token, resp.Username); err != nil {
		// The live session still works; it just won't survive a restart.
		s.log.Warn("persisting credentials", "error", err)
	}

	s.client.SetToken(resp.Token)
	s.session = domain.Session{
		Authenticated: true,
		Token:         resp.Token,
		User:          &domain.User{Username: resp.Username},
	}
	return nil
}

// Register creates a new account and returns the server confirmation
// message. It never mutates authentication state; a freshly registered user
// still logs in explicitly.
func (s *Store) Register(ctx context.Context, username, email, password string) (string, error) {
	msg, err := s.client.Register(ctx, username, email, password)
	if err != nil {
		return "", newAuthError(err, "Registration failed")
	}
	return msg, nil
}

// Logout clears the persisted credentials, removes the bearer credential
// from the API client, and resets the session. Idempotent: logging out
// while logged out is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.creds.Clear(); err != nil {
		s.log.Warn("clearing credentials", "error", err)
	}
	s.client.ClearToken()
	s.session = domain.Session{}
}

// Snapshot returns a read-only copy of the current session.
func (s *Store) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.session
	if s.session.User != nil {
		u := *s.session.User
		out.User = &u
	}
	return out
}
