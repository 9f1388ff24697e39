package evalcache

import (
	"context"
	"errors"
	"time"

	"crm-access-engine/internal/domain/rules"
	"crm-access-engine/internal/platform/logger"
)

const DefaultTTL = 30 * time.Second

// Cache adapta un Store al rules.MatchCache del motor.
type Cache struct {
	store Store
	ttl   time.Duration
	log   logger.Logger
	now   func() time.Time
}

func New(store Store, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log.With(map[string]any{"component": "evalcache"}),
		now:   time.Now,
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup nunca sirve un record vencido, aunque el store todavía lo tenga.
func (c *Cache) Lookup(ctx context.Context, key rules.MatchKey) (rules.CachedMatch, bool) {
	k := Key(key)
	rec, err := c.store.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn("cache get failed", map[string]any{"key": k, "error": err.Error()})
		}
		return rules.CachedMatch{}, false
	}
	if rec.Expired(c.now()) {
		_ = c.store.Delete(ctx, k)
		return rules.CachedMatch{}, false
	}
	return rules.CachedMatch{
		Matches:     rec.Matches,
		Permissions: rec.Permissions,
		EvaluatedAt: rec.EvaluatedAt,
	}, true
}

// Remember es best effort: un error del store solo se loguea.
func (c *Cache) Remember(ctx context.Context, key rules.MatchKey, m rules.CachedMatch) {
	evaluatedAt := m.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = c.now()
	}
	rec := Record{
		RuleID:      key.RuleID,
		EntityType:  key.EntityType,
		EntityID:    key.EntityID,
		UserID:      key.UserID,
		Matches:     m.Matches,
		Permissions: m.Permissions,
		EvaluatedAt: evaluatedAt,
		ExpiresAt:   evaluatedAt.Add(c.ttl),
	}
	if err := c.store.Put(ctx, rec.Key(), rec, c.ttl); err != nil {
		c.log.Warn("cache put failed", map[string]any{"key": rec.Key(), "error": err.Error()})
	}
}
