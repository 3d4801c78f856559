package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"stylehub/internal/model"
)

// Fixed storage slots.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// ErrEmptyToken is returned by Login when the service handed back no token.
var ErrEmptyToken = errors.New("empty access token")

// Session is the signed-in state of one storefront session.
type Session struct {
	mu      sync.RWMutex
	storage Storage
	logger  *slog.Logger
	token   string
	user    *model.User
}

// NewSession reads both slots once and returns the restored session.
// A user record that no longer parses is dropped rather than failing the session.
func NewSession(storage Storage, logger *slog.Logger) (*Session, error) {
	s := &Session{storage: storage, logger: logger}

	token, ok, err := storage.Get(TokenKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", TokenKey, err)
	}
	if ok {
		s.token = token
	}

	raw, ok, err := storage.Get(UserKey)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", UserKey, err)
	}
	if ok {
		var user model.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			logger.Warn("discarding unreadable stored user", slog.String("error", err.Error()))
		} else {
			s.user = &user
		}
	}

	return s, nil
}

// Login records a successful sign-in in memory and in storage.
func (s *Session) Login(token string, user model.User) error {
	if token == "" {
		return ErrEmptyToken
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Set(TokenKey, token); err != nil {
		return fmt.Errorf("storing %s: %w", TokenKey, err)
	}
	if err := s.storage.Set(UserKey, string(raw)); err != nil {
		return fmt.Errorf("storing %s: %w", UserKey, err)
	}
	s.token = token
	s.user = &user
	return nil
}

// Logout clears both slots. In-memory state is cleared even if storage fails.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.user = nil

	return errors.Join(
		s.storage.Remove(TokenKey),
		s.storage.Remove(UserKey),
	)
}

// Token returns the access token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authenticated reports whether a user record is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
