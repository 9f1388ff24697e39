package valkeystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-access-engine/internal/domain/evalcache"
	"crm-access-engine/internal/platform/valkey"

	valkeylib "github.com/valkey-io/valkey-go"
)

// Store implementa evalcache.Store sobre valkey. La expiración la hace el
// servidor (SET ... EX); no hace falta sweeper.
type Store struct {
	client *valkey.Client
	prefix string
}

func New(client *valkey.Client) *Store {
	return &Store{
		client: client,
		prefix: client.Key("evalcache") + ":",
	}
}

func (s *Store) fullKey(key string) string {
	return s.prefix + key
}

func (s *Store) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *Store) Get(ctx context.Context, key string) (evalcache.Record, error) {
	cmd := s.inner().B().Get().Key(s.fullKey(key)).Build()

	data, err := s.inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return evalcache.Record{}, evalcache.ErrMiss
		}
		return evalcache.Record{}, fmt.Errorf("failed to get evalcache record: %w", err)
	}

	var rec evalcache.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return evalcache.Record{}, fmt.Errorf("failed to unmarshal evalcache record: %w", err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, key string, rec evalcache.Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal evalcache record: %w", err)
	}

	cmd := s.inner().B().Set().
		Key(s.fullKey(key)).
		Value(string(data)).
		Ex(expiry(ttl)).
		Build()

	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save evalcache record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.inner().B().Del().Key(s.fullKey(key)).Build()
	if err := s.inner().Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to delete evalcache record: %w", err)
	}
	return nil
}

// expiry redondea hacia arriba al segundo: EX no acepta 0 ni fracciones.
func expiry(ttl time.Duration) time.Duration {
	if ttl < time.Second {
		return time.Second
	}
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	return ttl
}
