// Package fetch implements latest-wins loading for a single view.
//
// Each View owns at most one in-flight request. Starting a new load cancels
// the previous one, and a superseded load never writes the view's state: it
// returns model.ErrAborted to its caller instead.
package fetch

import (
	"context"
	"errors"
	"sync"

	"stylehub/internal/model"
)

// State is what a view currently shows.
type State[T any] struct {
	Loading    bool
	Value      T
	Err        error
	Generation uint64
}

// View tracks the visible state of one view and the request feeding it.
// The zero value is ready to use.
type View[T any] struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State[T]
}

// Load runs fn as the view's current request. Any request already in
// flight is cancelled and its result discarded.
//
// On success the value becomes visible. On failure the error becomes
// visible and the previous value is cleared. If a later Load or Cancel
// supersedes this one, Load returns model.ErrAborted and leaves state alone.
func (v *View[T]) Load(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	gen := v.gen
	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	v.cancel = cancel
	v.state.Loading = true
	v.state.Err = nil
	v.state.Generation = gen
	v.mu.Unlock()

	value, err := fn(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	cancel()

	if v.gen != gen {
		return zero, model.ErrAborted
	}
	v.cancel = nil
	v.state.Loading = false

	// The caller gave up; nothing newer replaced us, so the view keeps what it had.
	if err != nil && errors.Is(parent.Err(), context.Canceled) {
		return zero, model.ErrAborted
	}

	if err != nil {
		v.state.Value = zero
		v.state.Err = err
		return zero, err
	}
	v.state.Value = value
	v.state.Err = nil
	return value, nil
}

// State returns the view's visible state.
func (v *View[T]) State() State[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Cancel aborts the in-flight request, if any. Used when the view goes away.
func (v *View[T]) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.state.Loading = false
}

// IsAborted reports whether err came from a superseded or cancelled load.
func IsAborted(err error) bool {
	return errors.Is(err, model.ErrAborted)
}
