package screens

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingDropsStaleResponse(t *testing.T) {
	b := NewBinding[string]()
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan bool)

	go func() {
		applied, _ := b.Load(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- applied
	}()
	<-started

	applied, err := b.Load(context.Background(), func(context.Context) (string, error) { return "new", nil })
	require.NoError(t, err)
	assert.True(t, applied)

	close(release)
	assert.False(t, <-done)

	v, state, _ := b.Snapshot()
	assert.Equal(t, "new", v)
	assert.Equal(t, StateReady, state)
}

func TestBindingUnmountDropsInFlight(t *testing.T) {
	b := NewBinding[int]()
	release := make(chan struct{})
	done := make(chan bool)
	go func() {
		applied, _ := b.Load(context.Background(), func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
		done <- applied
	}()

	// wait until the load is in flight
	for {
		if _, state, _ := b.Snapshot(); state == StateLoading {
			break
		}
		runtime.Gosched()
	}
	b.Unmount()
	close(release)

	assert.False(t, <-done)
	v, _, _ := b.Snapshot()
	assert.Zero(t, v)
	assert.False(t, b.Update(func(int) int { return 5 }))

	applied, _ := b.Load(context.Background(), func(context.Context) (int, error) { return 2, nil })
	assert.False(t, applied)
}

func TestBindingErrorThenUpdate(t *testing.T) {
	b := NewBinding[int]()
	boom := errors.New("boom")

	_, err := b.Load(context.Background(), func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	_, state, got := b.Snapshot()
	assert.Equal(t, StateError, state)
	assert.Equal(t, boom, got)
	assert.False(t, b.Update(func(int) int { return 1 }))

	_, err = b.Load(context.Background(), func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.True(t, b.Update(func(v int) int { return v + 1 }))
	v, _, _ := b.Snapshot()
	assert.Equal(t, 4, v)
	assert.Equal(t, "ready", StateReady.String())
}
