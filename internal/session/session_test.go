package session

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront-sync/internal/redisx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func redisStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewStore(redisx.NewKV(rdb, "storefront"), zaptest.NewLogger(t))
}

func TestLoginPersistsAndRestores(t *testing.T) {
	mr, s := redisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, User{FullName: "A A", Role: RoleCourierAdmin}, 6))
	assert.True(t, s.IsCourierAdmin())
	assert.True(t, s.IsAuthReady())

	raw, err := mr.Get("storefront:user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fullName":"A A","role":"courierAdmin"}`, raw)
	id, _ := mr.Get("storefront:userId")
	assert.Equal(t, "6", id)

	// next process
	rdb := redisx.New(mr.Addr())
	defer rdb.Close()
	restarted := NewStore(redisx.NewKV(rdb, "storefront"), nil)
	assert.False(t, restarted.IsAuthReady())
	restarted.Load(ctx)

	<-restarted.Ready()
	cur, ok := restarted.Current()
	require.True(t, ok)
	assert.Equal(t, Session{UserID: 6, User: User{FullName: "A A", Role: RoleCourierAdmin}}, cur)
	assert.True(t, restarted.IsCourierAdmin())
}

func TestLoadWithNothingStored(t *testing.T) {
	_, s := redisStore(t)
	s.Load(context.Background())

	assert.True(t, s.IsAuthReady())
	_, ok := s.UserID()
	assert.False(t, ok)
	assert.False(t, s.IsCourierAdmin())
}

func TestLoadDiscardsCorruptUser(t *testing.T) {
	mr, s := redisStore(t)
	require.NoError(t, mr.Set("storefront:user", "{not json"))
	require.NoError(t, mr.Set("storefront:userId", "6"))

	s.Load(context.Background())

	assert.True(t, s.IsAuthReady())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, mr.Exists("storefront:user"))
	assert.False(t, mr.Exists("storefront:userId"))
}

func TestLoadDiscardsCorruptUserID(t *testing.T) {
	mr, s := redisStore(t)
	require.NoError(t, mr.Set("storefront:user", `{"fullName":"B B"}`))
	require.NoError(t, mr.Set("storefront:userId", "abc"))

	s.Load(context.Background())

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, mr.Exists("storefront:user"))
}

func TestLoadDefaultsRoleToCustomer(t *testing.T) {
	mr, s := redisStore(t)
	require.NoError(t, mr.Set("storefront:user", `{"fullName":"B B"}`))
	require.NoError(t, mr.Set("storefront:userId", "7"))

	s.Load(context.Background())

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, RoleCustomer, cur.User.Role)
	assert.False(t, s.IsCourierAdmin())
}

func TestLoadStoreUnavailableStillReady(t *testing.T) {
	mr, s := redisStore(t)
	mr.SetError("ERR server unavailable")

	s.Load(context.Background())
	assert.True(t, s.IsAuthReady())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	mr, s := redisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, User{FullName: "B B"}, 7))

	s.Logout(ctx)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, mr.Exists("storefront:user"))
	assert.False(t, mr.Exists("storefront:userId"))
}

type failingKV struct {
	*MemoryKV
	failSet    bool
	failDelete bool
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *failingKV) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errors.New("io error")
	}
	return f.MemoryKV.Delete(ctx, key)
}

func TestLoginPersistenceFailureKeepsMemorySession(t *testing.T) {
	s := NewStore(&failingKV{MemoryKV: NewMemoryKV(), failSet: true}, zaptest.NewLogger(t))

	err := s.Login(context.Background(), User{FullName: "B B"}, 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, redisx.KeyUser, pe.Key)

	id, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestLogoutSwallowsDeleteFailure(t *testing.T) {
	kv := &failingKV{MemoryKV: NewMemoryKV()}
	s := NewStore(kv, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, User{FullName: "B B"}, 7))

	kv.failDelete = true
	s.Logout(ctx)

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestLoginRejectsNonPositiveID(t *testing.T) {
	s := NewStore(NewMemoryKV(), nil)
	assert.Error(t, s.Login(context.Background(), User{FullName: "x"}, 0))
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestLoginBeforeLoadWins(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, redisx.KeyUser, `{"fullName":"Old"}`))
	require.NoError(t, kv.Set(ctx, redisx.KeyUserID, "3"))

	s := NewStore(kv, nil)
	require.NoError(t, s.Login(ctx, User{FullName: "New"}, 9))
	s.Load(ctx)

	id, _ := s.UserID()
	assert.Equal(t, 9, id)
}
