package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyFetchesOnce(t *testing.T) {
	var l Lazy[*[]string]
	var calls int
	fetch := func(context.Context) (*[]string, error) {
		calls++
		v := []string{"New", "Delivered"}
		return &v, nil
	}

	first, err := l.Get(context.Background(), fetch)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		v, err := l.Get(context.Background(), fetch)
		require.NoError(t, err)
		assert.Same(t, first, v)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, l.Loaded())
}

func TestLazyDoesNotCacheErrors(t *testing.T) {
	var l Lazy[int]
	boom := errors.New("boom")
	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 42, nil
	}

	_, err := l.Get(context.Background(), fetch)
	assert.ErrorIs(t, err, boom)
	assert.False(t, l.Loaded())

	v, err := l.Get(context.Background(), fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func TestLazyInvalidate(t *testing.T) {
	var l Lazy[int]
	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, _ := l.Get(context.Background(), fetch)
	assert.Equal(t, 1, v)
	l.Invalidate()
	assert.False(t, l.Loaded())
	v, _ = l.Get(context.Background(), fetch)
	assert.Equal(t, 2, v)
}

func TestLazyDedupesConcurrentFirstCalls(t *testing.T) {
	var l Lazy[int]
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = l.Get(context.Background(), fetch)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}

func TestLazyGetHonoursContext(t *testing.T) {
	var l Lazy[int]
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)

	_, err := l.Get(ctx, func(context.Context) (int, error) {
		<-block
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
