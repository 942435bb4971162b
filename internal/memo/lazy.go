// Package memo holds process-lifetime memoized lookups.
package memo

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Lazy memoizes the first successful result of a fetch. Concurrent first
// calls share one fetch. Failures are not remembered. There is no TTL; the
// value lives until Invalidate.
type Lazy[T any] struct {
	mu     sync.RWMutex
	value  T
	loaded bool
	gen    uint64
	group  singleflight.Group
}

func (l *Lazy[T]) Get(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	l.mu.RLock()
	if l.loaded {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	gen := l.gen
	l.mu.RUnlock()

	// the shared fetch must outlive the first caller's cancellation
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan("value", func() (any, error) {
		l.mu.RLock()
		if l.loaded {
			v := l.value
			l.mu.RUnlock()
			return v, nil
		}
		l.mu.RUnlock()

		v, err := fetch(fetchCtx)
		if err != nil {
			return v, err
		}
		l.mu.Lock()
		// an Invalidate that raced with this fetch wins
		if l.gen == gen {
			l.value, l.loaded = v, true
		}
		l.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Invalidate forgets the memoized value; the next Get fetches again.
func (l *Lazy[T]) Invalidate() {
	l.mu.Lock()
	var zero T
	l.value, l.loaded = zero, false
	l.gen++
	l.mu.Unlock()
	l.group.Forget("value")
}

func (l *Lazy[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}
