package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/rules"
)

type ruleRepo struct {
	mu   sync.RWMutex
	byID map[string]rules.Rule
}

func NewRuleRepo() rules.Repository {
	return &ruleRepo{
		byID: make(map[string]rules.Rule),
	}
}

func (r *ruleRepo) Create(ctx context.Context, x rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(x.ID) == "" {
		return errors.New("rule id required")
	}
	if _, exists := r.byID[x.ID]; exists {
		return errors.New("rule already exists")
	}
	r.byID[x.ID] = x
	return nil
}

func (r *ruleRepo) Update(ctx context.Context, x rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[x.ID]; !exists {
		return rules.ErrNotFound
	}
	r.byID[x.ID] = x
	return nil
}

func (r *ruleRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return rules.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *ruleRepo) GetByID(ctx context.Context, id string) (rules.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	x, ok := r.byID[id]
	if !ok {
		return rules.Rule{}, rules.ErrNotFound
	}
	return x, nil
}

func (r *ruleRepo) List(ctx context.Context) ([]rules.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rules.Rule, 0, len(r.byID))
	for _, x := range r.byID {
		out = append(out, x)
	}
	rules.SortRules(out)
	return out, nil
}

func (r *ruleRepo) ListActive(ctx context.Context, subject access.EntityType) ([]rules.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rules.Rule, 0)
	for _, x := range r.byID {
		if x.IsActive && x.SubjectType == subject {
			out = append(out, x)
		}
	}
	rules.SortRules(out)
	return out, nil
}
