package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"crm-access-engine/internal/domain/audit"
)

// auditRepo es append-only: no hay update ni delete.
type auditRepo struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewAuditRepo() audit.Repository {
	return &auditRepo{
		entries: make([]audit.Entry, 0),
	}
}

func (r *auditRepo) Append(ctx context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("audit entry id required")
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *auditRepo) List(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	out := make([]audit.Entry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.RuleID != "" && (e.RuleID == nil || *e.RuleID != filter.RuleID) {
			continue
		}
		if len(filter.Actions) > 0 && !hasAction(filter.Actions, e.Action) {
			continue
		}
		out = append(out, e)
	}

	// Más reciente primero; a igual timestamp queda el orden de inserción inverso.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *auditRepo) CountByRule(ctx context.Context, ruleID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.RuleID != nil && *e.RuleID == ruleID {
			n++
		}
	}
	return n, nil
}

func hasAction(list []audit.Action, a audit.Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
