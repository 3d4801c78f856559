package session

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"stylehub/internal/auth"
	"stylehub/internal/backend"
)

// StorageFactory returns the auth storage for a session id.
type StorageFactory func(id string) (auth.Storage, error)

// MemoryStorageFactory keeps auth state in memory only; it is lost with the session.
func MemoryStorageFactory() StorageFactory {
	return func(string) (auth.Storage, error) {
		return auth.NewMemoryStorage(), nil
	}
}

// FileStorageFactory keeps each session's auth state in dir/<id>.json, so a
// returning session id signs back in after eviction or restart.
func FileStorageFactory(dir string) StorageFactory {
	return func(id string) (auth.Storage, error) {
		return auth.NewFileStorage(filepath.Join(dir, id+".json")), nil
	}
}

// Options configures a Manager.
type Options struct {
	// IdleTimeout is how long an unused session survives. Zero disables eviction.
	IdleTimeout time.Duration
	Storage     StorageFactory
	Checkout    CheckoutDefaults

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Manager creates, finds, and evicts sessions.
type Manager struct {
	backend backend.Backend
	logger  *slog.Logger
	opts    Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager backed by b.
func NewManager(b backend.Backend, opts Options, logger *slog.Logger) *Manager {
	if opts.Storage == nil {
		opts.Storage = MemoryStorageFactory()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		backend:  b,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a fresh id.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(uuid.NewString())
}

// Get returns the live session for id and marks it used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// GetOrCreate returns the session for id, creating it if needed.
// A well-formed id that is not live is reopened under the same id, which
// restores any persisted auth state. Any other id gets a fresh session.
func (m *Manager) GetOrCreate(id string) (*Session, bool, error) {
	if norm, ok := NormalizeID(id); ok {
		id = norm
	} else {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.touch()
		return s, false, nil
	}
	s, err := m.createLocked(id)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// NormalizeID returns the canonical form of a session id, which is a
// lower-case hyphenated UUID. It reports false for ids that are not UUIDs.
func NormalizeID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func (m *Manager) createLocked(id string) (*Session, error) {
	storage, err := m.opts.Storage(id)
	if err != nil {
		return nil, fmt.Errorf("opening auth storage: %w", err)
	}
	authSession, err := auth.NewSession(storage, m.logger)
	if err != nil {
		return nil, fmt.Errorf("loading auth state: %w", err)
	}

	s := newSession(id, m.backend, authSession, m.opts.Checkout, m.opts.Now, m.logger)
	m.sessions[id] = s
	m.logger.Debug("session created",
		slog.String("session_id", id),
		slog.Bool("authenticated", authSession.Authenticated()))
	return s, nil
}

// Close removes the session and aborts its in-flight loads.
// Persisted auth state is left in place.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}

// Sweep evicts sessions idle for longer than IdleTimeout and returns how many.
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.opts.IdleTimeout {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		m.logger.Info("evicted idle sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.opts.Now())
		}
	}
}

// Len is the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
