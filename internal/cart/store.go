package cart

import (
	"sync"

	"stylehub/internal/model"
)

// Store owns one cart for the lifetime of a storefront session.
// Dispatch may be called from any goroutine; commands are applied one at a
// time, each to the snapshot produced by the previous one.
type Store struct {
	mu       sync.Mutex
	snapshot Snapshot
	version  uint64
}

// NewStore creates a store holding the empty cart.
func NewStore() *Store {
	return &Store{snapshot: Empty()}
}

// Dispatch applies cmd to the latest snapshot and returns the result.
func (s *Store) Dispatch(cmd Command) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Apply(s.snapshot, cmd)
	s.version++
	return s.snapshot
}

// AddItem adds one unit of item.
func (s *Store) AddItem(item model.CatalogItem) Snapshot {
	return s.Dispatch(AddItem(item))
}

// RemoveItem drops the line for id, if any.
func (s *Store) RemoveItem(id string) Snapshot {
	return s.Dispatch(RemoveItem(id))
}

// UpdateQuantity sets the quantity for id; quantity <= 0 removes the line.
func (s *Store) UpdateQuantity(id string, quantity int) Snapshot {
	return s.Dispatch(UpdateQuantity(id, quantity))
}

// Clear empties the cart.
func (s *Store) Clear() Snapshot {
	return s.Dispatch(Clear())
}

// Snapshot returns the latest snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Version counts dispatched commands. Readers compare versions to detect
// that a new snapshot has replaced the one they hold.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// State returns the latest snapshot together with its version.
func (s *Store) State() (Snapshot, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.version
}

// DispatchIf applies cmd only if no other command was dispatched since
// version. It reports whether cmd was applied.
func (s *Store) DispatchIf(version uint64, cmd Command) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return s.snapshot, false
	}
	s.snapshot = Apply(s.snapshot, cmd)
	s.version++
	return s.snapshot, true
}
