// Package session holds the bearer credential for the signed-in user. It is
// the only owner of the token; every gateway and the event-stream client read
// it through a *Store that is passed to them explicitly.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"image-studio-client/internal/apperr"
	"image-studio-client/internal/database"
	"image-studio-client/internal/models"
)

// Persister keeps the session across process restarts.
type Persister interface {
	SaveSession(token string, user *models.User) error
	LoadSession() (string, *models.User, error)
	DeleteSession() error
}

type Store struct {
	mu        sync.RWMutex
	token     string
	user      *models.User
	expiresAt time.Time
	subject   string

	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates an empty store. persister may be nil for an in-memory
// session.
func NewStore(persister Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{persister: persister, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Load restores a persisted session, if any.
func (s *Store) Load() error {
	if s.persister == nil {
		return nil
	}
	token, user, err := s.persister.LoadSession()
	if errors.Is(err, database.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	s.apply(token, user)
	return nil
}

// Set starts a session. An empty token is rejected.
func (s *Store) Set(token string, user *models.User) error {
	if token == "" {
		return &apperr.ValidationError{Field: "token", Message: "token must not be empty"}
	}
	if s.persister != nil {
		if err := s.persister.SaveSession(token, user); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	s.apply(token, user)
	return nil
}

func (s *Store) apply(token string, user *models.User) {
	claims := jwt.RegisteredClaims{}
	var expiresAt time.Time
	var subject string
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		subject = claims.Subject
	}

	var userCopy *models.User
	if user != nil {
		u := *user
		userCopy = &u
		if subject == "" {
			subject = u.ID
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = userCopy
	s.expiresAt = expiresAt
	s.subject = subject
	s.mu.Unlock()
}

// Token returns the current bearer token. An expired token ends the session.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	token, expiresAt, now := s.token, s.expiresAt, s.now
	s.mu.RUnlock()

	if token == "" {
		return "", &apperr.AuthError{Message: "not logged in"}
	}
	if !expiresAt.IsZero() && !now().Before(expiresAt) {
		if err := s.Clear(); err != nil {
			s.logger.Warn("failed to clear expired session", "err", err)
		}
		return "", &apperr.AuthError{Message: "session expired, please log in again"}
	}
	return token, nil
}

// User returns a copy of the cached profile, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Subject is the JWT "sub" claim, falling back to the cached user id.
func (s *Store) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Clear ends the session locally and in the persister.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.expiresAt = time.Time{}
	s.subject = ""
	s.mu.Unlock()

	if s.persister != nil {
		return s.persister.DeleteSession()
	}
	return nil
}
