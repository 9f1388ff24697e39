package entities

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	mu   sync.Mutex
	byID map[string]Entity
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Entity{}}
}

func (r *testRepo) Create(ctx context.Context, e Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, t access.EntityType, id string) (Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.Type != t {
		return Entity{}, ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListByPoolStatus(ctx context.Context, t access.EntityType, statuses ...PoolStatus) ([]Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entity, 0)
	for _, e := range r.byID {
		if e.Type != t {
			continue
		}
		for _, s := range statuses {
			if e.PoolStatus == s {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (r *testRepo) ClaimIfUnowned(ctx context.Context, t access.EntityType, id string, expected PoolStatus, ownerID string, at time.Time) (Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.Type != t || e.PoolStatus != expected || !e.Unassigned() {
		return Entity{}, false, nil
	}
	e.OwnerID = &ownerID
	e.PoolStatus = PoolClaimed
	e.ClaimedAt = &at
	e.UpdatedAt = at
	r.byID[id] = e
	return e, true, nil
}

func (r *testRepo) TransitionStatus(ctx context.Context, t access.EntityType, id string, from, to PoolStatus, at time.Time) (Entity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok || e.Type != t || e.PoolStatus != from || !e.Unassigned() {
		return Entity{}, false, nil
	}
	e.PoolStatus = to
	e.UpdatedAt = at
	r.byID[id] = e
	return e, true, nil
}

type testRecorder struct {
	entries []audit.Entry
}

func (t *testRecorder) Record(ctx context.Context, e audit.Entry) error {
	t.entries = append(t.entries, e)
	return nil
}

var (
	t0      = time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	sdr     = access.Actor{UserID: "sdr-1", Role: access.RoleSDR}
	admin   = access.Actor{UserID: "admin-1", Role: access.RoleAdmin}
	coach   = access.Actor{UserID: "coach-1", Role: access.RoleHealthCoach}
	patient = access.Actor{UserID: "pat-1", Role: access.RolePatient}
)

func newTestService() (*Service, *testRepo, *testRecorder) {
	repo := newTestRepo()
	rec := &testRecorder{}
	svc := NewService(repo, rec, nil)
	svc.now = func() time.Time { return t0 }
	return svc, repo, rec
}

func TestCreate_UnownedLeadEntersPoolOpen(t *testing.T) {
	svc, _, _ := newTestService()

	e, err := svc.Create(context.Background(), sdr, CreateInput{
		Type:   access.EntityLead,
		Fields: map[string]any{"name": "Jane", "state": "TX"},
	})
	require.NoError(t, err)

	assert.Equal(t, PoolOpen, e.PoolStatus)
	assert.Nil(t, e.OwnerID)
	assert.Nil(t, e.ClaimedAt)
	require.NotNil(t, e.PoolEnteredAt)
	assert.Equal(t, t0, *e.PoolEnteredAt)
}

func TestCreate_OwnedContactIsClaimed(t *testing.T) {
	svc, _, _ := newTestService()
	owner := "sdr-1"

	e, err := svc.Create(context.Background(), sdr, CreateInput{Type: access.EntityContact, OwnerID: &owner})
	require.NoError(t, err)

	assert.Equal(t, PoolClaimed, e.PoolStatus)
	require.NotNil(t, e.ClaimedAt)
	assert.Equal(t, "sdr-1", e.Owner())
}

func TestCreate_TaskHasNoPoolState(t *testing.T) {
	svc, _, _ := newTestService()
	e, err := svc.Create(context.Background(), coach, CreateInput{Type: access.EntityTask})
	require.NoError(t, err)
	assert.Empty(t, e.PoolStatus)
	assert.Nil(t, e.PoolEnteredAt)
}

func TestCreate_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	future := t0.Add(time.Hour)

	_, err := svc.Create(ctx, patient, CreateInput{Type: access.EntityLead})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, sdr, CreateInput{Type: "invoice"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, sdr, CreateInput{Type: access.EntityLead, Fields: map[string]any{"ownerId": "x"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, sdr, CreateInput{Type: access.EntityLead, PoolEnteredAt: &future})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreate_CoercesTypedFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	task, err := svc.Create(ctx, coach, CreateInput{
		Type:   access.EntityTask,
		Fields: map[string]any{"title": "Call back", "dueDate": "2026-01-10T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), task.Fields["dueDate"])
	assert.Equal(t, "Call back", task.Fields["title"])

	// una regla de fecha sobre el campo libre tiene que matchear
	matched, err := rules.Check(task.Snapshot(), rules.Condition{Field: "dueDate", Operator: rules.OpGreater, Value: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)
	assert.True(t, matched)

	lead, err := svc.Create(ctx, sdr, CreateInput{
		Type:   access.EntityLead,
		Fields: map[string]any{"leadScore": 80, "custom": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, lead.Fields["leadScore"])
	assert.Equal(t, "x", lead.Fields["custom"])
}

func TestCreate_RejectsMistypedFields(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, sdr, CreateInput{Type: access.EntityLead, Fields: map[string]any{"leadScore": "80"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, coach, CreateInput{Type: access.EntityAppointment, Fields: map[string]any{"startsAt": "tomorrow"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, repo.byID)
}

func TestSnapshot_SystemFieldsAndNulls(t *testing.T) {
	entered := t0.Add(-2 * time.Hour)
	e := Entity{
		ID:            "lead-1",
		Type:          access.EntityLead,
		PoolStatus:    PoolOpen,
		PoolEnteredAt: &entered,
		Fields:        map[string]any{"state": "TX"},
		CreatedAt:     t0.Add(-3 * time.Hour),
		UpdatedAt:     t0,
	}

	s := e.Snapshot()
	assert.Equal(t, "lead-1", s["id"])
	assert.Equal(t, "TX", s["state"])
	assert.Equal(t, "open", s["poolStatus"])
	assert.Equal(t, entered, s["poolEnteredAt"])

	v, present := s["ownerId"]
	assert.True(t, present)
	assert.Nil(t, v)

	_, present = s["claimedAt"]
	assert.True(t, present)

	assert.Equal(t, entered, e.ReferenceTime())

	task := Entity{ID: "t1", Type: access.EntityTask, CreatedAt: t0}
	_, present = task.Snapshot()["poolStatus"]
	assert.False(t, present)
	assert.Equal(t, t0, task.ReferenceTime())
}

func TestReleaseToHealthCoaches(t *testing.T) {
	svc, repo, rec := newTestService()
	ctx := context.Background()

	lead, err := svc.Create(ctx, sdr, CreateInput{Type: access.EntityLead})
	require.NoError(t, err)

	_, err = svc.ReleaseToHealthCoaches(ctx, sdr, lead.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	released, err := svc.ReleaseToHealthCoaches(ctx, admin, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, PoolAvailableToHealthCoaches, released.PoolStatus)

	stored, _ := repo.GetByID(ctx, access.EntityLead, lead.ID)
	assert.Equal(t, PoolAvailableToHealthCoaches, stored.PoolStatus)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, audit.ActionReleasedToCoaches, rec.entries[0].Action)
	assert.Equal(t, "admin-1", rec.entries[0].UserID)

	// ya no está open
	_, err = svc.ReleaseToHealthCoaches(ctx, admin, lead.ID)
	assert.ErrorIs(t, err, ErrNotReleasable)

	_, err = svc.ReleaseToHealthCoaches(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
