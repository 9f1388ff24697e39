package evalcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStore struct {
	mu     sync.Mutex
	items  map[string]Record
	putErr error
}

func newTestStore() *testStore {
	return &testStore{items: map[string]Record{}}
}

func (s *testStore) Get(ctx context.Context, key string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[key]
	if !ok {
		return Record{}, ErrMiss
	}
	return r, nil
}

func (s *testStore) Put(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = rec
	return nil
}

func (s *testStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

var key = rules.MatchKey{RuleID: "r1", EntityType: access.EntityLead, EntityID: "lead-1", UserID: "u1"}

func TestCache_RememberThenLookup(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	store := newTestStore()
	c := New(store, time.Minute, nil)
	c.now = func() time.Time { return t0 }

	c.Remember(ctx, key, rules.CachedMatch{Matches: true, Permissions: rules.Permissions{Read: true}, EvaluatedAt: t0})

	m, ok := c.Lookup(ctx, key)
	require.True(t, ok)
	assert.True(t, m.Matches)
	assert.True(t, m.Permissions.Read)
	assert.Equal(t, t0, m.EvaluatedAt)

	rec := store.items["r1:lead:lead-1:u1"]
	assert.Equal(t, t0.Add(time.Minute), rec.ExpiresAt)
}

func TestCache_ExpiredNeverServed(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	store := newTestStore()
	c := New(store, time.Minute, nil)
	c.now = func() time.Time { return t0 }
	c.Remember(ctx, key, rules.CachedMatch{Matches: true, EvaluatedAt: t0})

	// justo en expiresAt ya no sirve
	c.now = func() time.Time { return t0.Add(time.Minute) }
	_, ok := c.Lookup(ctx, key)
	assert.False(t, ok)
	assert.Empty(t, store.items)
}

func TestCache_DistinctUsersDoNotShare(t *testing.T) {
	ctx := context.Background()
	c := New(newTestStore(), 0, nil)
	assert.Equal(t, DefaultTTL, c.TTL())

	c.Remember(ctx, key, rules.CachedMatch{Matches: true})

	other := key
	other.UserID = "u2"
	_, ok := c.Lookup(ctx, other)
	assert.False(t, ok)
}

func TestCache_StoreErrorsAreMisses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.putErr = errors.New("valkey down")
	c := New(store, time.Minute, nil)

	c.Remember(ctx, key, rules.CachedMatch{Matches: true})
	_, ok := c.Lookup(ctx, key)
	assert.False(t, ok)
}
