package memory

import (
	"context"
	"sync"
	"time"

	"crm-access-engine/internal/domain/evalcache"
	"crm-access-engine/internal/platform/logger"
)

// EvalCacheStore es el backend en memoria del cache de evaluaciones.
type EvalCacheStore struct {
	mu    sync.RWMutex
	items map[string]evalcache.Record
	now   func() time.Time
}

func NewEvalCacheStore() *EvalCacheStore {
	return &EvalCacheStore{
		items: make(map[string]evalcache.Record),
		now:   time.Now,
	}
}

func (s *EvalCacheStore) Get(ctx context.Context, key string) (evalcache.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[key]
	if !ok {
		return evalcache.Record{}, evalcache.ErrMiss
	}
	return rec, nil
}

// Put sobrescribe; el ttl ya viene reflejado en rec.ExpiresAt.
func (s *EvalCacheStore) Put(ctx context.Context, key string, rec evalcache.Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = rec
	return nil
}

func (s *EvalCacheStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Sweep borra los records vencidos y devuelve cuántos sacó.
func (s *EvalCacheStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, rec := range s.items {
		if rec.Expired(now) {
			delete(s.items, k)
			n++
		}
	}
	return n
}

func (s *EvalCacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// RunSweeper corre Sweep cada interval hasta que se cancele ctx.
func (s *EvalCacheStore) RunSweeper(ctx context.Context, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug("evalcache sweep", map[string]any{"evicted": n})
			}
		}
	}
}
