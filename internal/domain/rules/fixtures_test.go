package rules

import (
	"context"
	"errors"
	"sync"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu   sync.Mutex
	byID map[string]Rule

	getErr        error
	listActiveErr error
}

func newTestRepo(rs ...Rule) *testRepo {
	r := &testRepo{byID: map[string]Rule{}}
	for _, x := range rs {
		r.byID[x.ID] = x
	}
	return r
}

func (r *testRepo) Create(ctx context.Context, x Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[x.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[x.ID] = x
	return nil
}

func (r *testRepo) Update(ctx context.Context, x Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[x.ID]; !ok {
		return ErrNotFound
	}
	r.byID[x.ID] = x
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Rule, error) {
	if r.getErr != nil {
		return Rule{}, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.byID[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return x, nil
}

func (r *testRepo) List(ctx context.Context) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Rule, 0, len(r.byID))
	for _, x := range r.byID {
		out = append(out, x)
	}
	return out, nil
}

func (r *testRepo) ListActive(ctx context.Context, subject access.EntityType) ([]Rule, error) {
	if r.listActiveErr != nil {
		return nil, r.listActiveErr
	}
	all, _ := r.List(ctx)
	out := make([]Rule, 0, len(all))
	for _, x := range all {
		if x.IsActive && x.SubjectType == subject {
			out = append(out, x)
		}
	}
	return out, nil
}

// -------------------------
// Audit recorder
// -------------------------

type testRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (t *testRecorder) Record(ctx context.Context, e audit.Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	return nil
}

func (t *testRecorder) byAction(a audit.Action) []audit.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]audit.Entry, 0)
	for _, e := range t.entries {
		if e.Action == a {
			out = append(out, e)
		}
	}
	return out
}

func (t *testRecorder) HasRuleReferences(ctx context.Context, ruleID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.RuleID != nil && *e.RuleID == ruleID {
			return true, nil
		}
	}
	return false, nil
}

// -------------------------
// Match cache
// -------------------------

type testCache struct {
	mu      sync.Mutex
	items   map[MatchKey]CachedMatch
	lookups int
	hits    int
}

func newTestCache() *testCache {
	return &testCache{items: map[MatchKey]CachedMatch{}}
}

func (c *testCache) Lookup(ctx context.Context, key MatchKey) (CachedMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	m, ok := c.items[key]
	if ok {
		c.hits++
	}
	return m, ok
}

func (c *testCache) Remember(ctx context.Context, key MatchKey, m CachedMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = m
}

var baseTime = time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

func grantRule(id string, priority int, cond Condition, p Permissions) Rule {
	return Rule{
		ID:          id,
		Name:        "rule " + id,
		IsActive:    true,
		Priority:    priority,
		SubjectType: access.EntityLead,
		Condition:   cond,
		Action: Action{
			Type:        ActionGrantAccess,
			Target:      Target{Type: TargetRole, ID: "sdr"},
			Permissions: p,
		},
		CreatedBy: "admin-1",
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}
