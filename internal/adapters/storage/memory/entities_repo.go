package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/entities"
)

type entityRepo struct {
	mu   sync.RWMutex
	byID map[string]entities.Entity
}

func NewEntityRepo() entities.Repository {
	return &entityRepo{
		byID: make(map[string]entities.Entity),
	}
}

func (r *entityRepo) Create(ctx context.Context, e entities.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(e.ID) == "" {
		return errors.New("entity id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New("entity already exists")
	}
	r.byID[e.ID] = cloneEntity(e)
	return nil
}

func (r *entityRepo) GetByID(ctx context.Context, t access.EntityType, id string) (entities.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok || e.Type != t {
		return entities.Entity{}, entities.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (r *entityRepo) ListByPoolStatus(ctx context.Context, t access.EntityType, statuses ...entities.PoolStatus) ([]entities.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.Entity, 0)
	for _, e := range r.byID {
		if e.Type != t {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, e.PoolStatus) {
			continue
		}
		out = append(out, cloneEntity(e))
	}

	// Orden estable por created_at asc (solo para consistencia en dev)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ClaimIfUnowned hace check-and-set bajo el write lock: equivalente al
// UPDATE ... WHERE pool_status = $expected AND owner_id IS NULL.
func (r *entityRepo) ClaimIfUnowned(ctx context.Context, t access.EntityType, id string, expected entities.PoolStatus, ownerID string, at time.Time) (entities.Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.Type != t {
		return entities.Entity{}, false, nil
	}
	if e.PoolStatus != expected || !e.Unassigned() {
		return entities.Entity{}, false, nil
	}

	owner := ownerID
	claimedAt := at
	e.OwnerID = &owner
	e.PoolStatus = entities.PoolClaimed
	e.ClaimedAt = &claimedAt
	e.UpdatedAt = at

	r.byID[id] = e
	return cloneEntity(e), true, nil
}

func (r *entityRepo) TransitionStatus(ctx context.Context, t access.EntityType, id string, from, to entities.PoolStatus, at time.Time) (entities.Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok || e.Type != t {
		return entities.Entity{}, false, nil
	}
	if e.PoolStatus != from || !e.Unassigned() {
		return entities.Entity{}, false, nil
	}

	e.PoolStatus = to
	e.UpdatedAt = at
	r.byID[id] = e
	return cloneEntity(e), true, nil
}

func hasStatus(list []entities.PoolStatus, s entities.PoolStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// cloneEntity evita que el caller mute lo guardado a través de punteros o del map.
func cloneEntity(e entities.Entity) entities.Entity {
	if e.OwnerID != nil {
		v := *e.OwnerID
		e.OwnerID = &v
	}
	if e.PoolEnteredAt != nil {
		v := *e.PoolEnteredAt
		e.PoolEnteredAt = &v
	}
	if e.ClaimedAt != nil {
		v := *e.ClaimedAt
		e.ClaimedAt = &v
	}
	if e.Fields != nil {
		f := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			f[k] = v
		}
		e.Fields = f
	}
	return e
}
