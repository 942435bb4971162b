// Package screens binds service results to per-screen view state. A screen
// only ever shows the newest answer it asked for, and nothing after it is
// unmounted.
package screens

import (
	"context"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Binding holds one screen's view of a remote value.
type Binding[T any] struct {
	mu      sync.Mutex
	gen     uint64
	mounted bool
	state   State
	value   T
	err     error
}

func NewBinding[T any]() *Binding[T] {
	return &Binding[T]{mounted: true}
}

// Load runs fetch and applies its result unless a newer Load started or the
// binding was unmounted in the meantime. applied reports which happened; err
// is fetch's error either way.
func (b *Binding[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) (applied bool, err error) {
	b.mu.Lock()
	if !b.mounted {
		b.mu.Unlock()
		return false, nil
	}
	b.gen++
	gen := b.gen
	b.state = StateLoading
	b.mu.Unlock()

	v, err := fetch(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || gen != b.gen {
		return false, err
	}
	if err != nil {
		b.state, b.err = StateError, err
		return true, err
	}
	b.state, b.value, b.err = StateReady, v, nil
	return true, nil
}

// Update applies a server-confirmed change to the current value. It is a
// no-op unless the binding is mounted and ready.
func (b *Binding[T]) Update(fn func(T) T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mounted || b.state != StateReady {
		return false
	}
	b.value = fn(b.value)
	return true
}

// Fail puts the binding in the error state without a fetch.
func (b *Binding[T]) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mounted {
		b.gen++
		b.state, b.err = StateError, err
	}
}

func (b *Binding[T]) Snapshot() (T, State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.state, b.err
}

// Unmount makes every later or in-flight result a no-op.
func (b *Binding[T]) Unmount() {
	b.mu.Lock()
	b.mounted = false
	b.mu.Unlock()
}

func (b *Binding[T]) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}
