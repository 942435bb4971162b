// Package session holds the signed-in identity for the running client and
// keeps it across restarts in a key-value store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ariefcatur/go-storefront-sync/internal/redisx"
	"go.uber.org/zap"
)

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleCourierAdmin Role = "courierAdmin"
)

type User struct {
	FullName string `json:"fullName"`
	Role     Role   `json:"role,omitempty"`
}

type Session struct {
	UserID int
	User   User
}

// KV is the durable store behind Store. *redisx.KV and *MemoryKV implement it.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrPersistence = errors.New("session persistence failed")

// PersistenceError reports that the identity is set for this process but was
// not saved for the next one.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// Store is the one Session of the process. Mutated only by Login, Logout and
// Load.
type Store struct {
	kv  KV
	log *zap.Logger

	mu  sync.RWMutex
	cur *Session

	readyOnce sync.Once
	ready     chan struct{}
}

func NewStore(kv KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log, ready: make(chan struct{})}
}

// Login sets the identity in memory, then persists it. A persistence failure
// is returned but the in-memory session stays set.
func (s *Store) Login(ctx context.Context, user User, userID int) error {
	if userID <= 0 {
		return fmt.Errorf("login: user id must be positive, got %d", userID)
	}
	if user.Role == "" {
		user.Role = RoleCustomer
	}
	s.mu.Lock()
	s.cur = &Session{UserID: userID, User: user}
	s.mu.Unlock()
	s.markReady()
	s.log.Info("signed in", zap.Int("user_id", userID), zap.String("role", string(user.Role)))

	b, err := json.Marshal(user)
	if err != nil {
		return &PersistenceError{Key: redisx.KeyUser, Err: err}
	}
	if err := s.kv.Set(ctx, redisx.KeyUser, string(b)); err != nil {
		s.log.Error("persist user failed", zap.Error(err))
		return &PersistenceError{Key: redisx.KeyUser, Err: err}
	}
	if err := s.kv.Set(ctx, redisx.KeyUserID, strconv.Itoa(userID)); err != nil {
		s.log.Error("persist user id failed", zap.Error(err))
		return &PersistenceError{Key: redisx.KeyUserID, Err: err}
	}
	return nil
}

// Logout clears memory and removes the persisted entries. Delete failures are
// logged, never returned.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
	s.clearPersisted(ctx)
	s.log.Info("signed out")
}

func (s *Store) clearPersisted(ctx context.Context) {
	for _, k := range []string{redisx.KeyUser, redisx.KeyUserID} {
		if err := s.kv.Delete(ctx, k); err != nil {
			s.log.Warn("clear persisted session failed", zap.String("key", k), zap.Error(err))
		}
	}
}

// Load restores the persisted identity. Corrupt entries are discarded and
// the process continues signed out. The store is ready afterwards whatever
// happened.
func (s *Store) Load(ctx context.Context) {
	defer s.markReady()

	rawUser, okUser, err := s.kv.Get(ctx, redisx.KeyUser)
	if err != nil {
		s.log.Error("load persisted user failed", zap.Error(err))
		return
	}
	rawID, okID, err := s.kv.Get(ctx, redisx.KeyUserID)
	if err != nil {
		s.log.Error("load persisted user id failed", zap.Error(err))
		return
	}
	if !okUser && !okID {
		return
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil || !okUser {
		s.log.Warn("discarding corrupt persisted user", zap.Bool("present", okUser), zap.Error(err))
		s.clearPersisted(ctx)
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		s.log.Warn("discarding corrupt persisted user id", zap.String("value", rawID), zap.Error(err))
		s.clearPersisted(ctx)
		return
	}
	if user.Role == "" {
		user.Role = RoleCustomer
	}

	s.mu.Lock()
	// a Login that beat Load wins
	if s.cur == nil {
		s.cur = &Session{UserID: id, User: user}
	}
	s.mu.Unlock()
	s.log.Info("session restored", zap.Int("user_id", id))
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the persisted identity has been looked at.
func (s *Store) Ready() <-chan struct{} { return s.ready }

func (s *Store) IsAuthReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return Session{}, false
	}
	return *s.cur, true
}

func (s *Store) UserID() (int, bool) {
	cur, ok := s.Current()
	return cur.UserID, ok
}

func (s *Store) IsCourierAdmin() bool {
	cur, ok := s.Current()
	return ok && cur.User.Role == RoleCourierAdmin
}
