package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-access-engine/internal/domain/access"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	byID map[string]User
}

func (r *testRepo) Create(ctx context.Context, u User) error {
	if _, ok := r.byID[u.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[u.ID] = u
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (User, error) {
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *testRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	return out, nil
}

var admin = access.Actor{UserID: "admin-1", Role: access.RoleAdmin}

func newTestService() *Service {
	svc := NewService(&testRepo{byID: map[string]User{}})
	svc.now = func() time.Time { return time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreate_OK(t *testing.T) {
	svc := newTestService()

	u, err := svc.Create(context.Background(), admin, CreateInput{ID: "coach-1", Name: " Ana ", Email: "ana@example.com", Role: "Health-Coach"})
	require.NoError(t, err)
	assert.Equal(t, "coach-1", u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, access.RoleHealthCoach, u.Role)

	got, err := svc.Get(context.Background(), "coach-1")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestCreate_Rejections(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, access.Actor{UserID: "sdr-1", Role: access.RoleSDR}, CreateInput{Name: "x", Role: "sdr"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ctx, admin, CreateInput{Name: "x", Role: "janitor"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, admin, CreateInput{Name: "", Role: "sdr"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, admin, CreateInput{Name: "x", Email: "not-an-email", Role: "sdr"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolve(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, CreateInput{ID: "sdr-1", Name: "Sam", Role: "sdr"})
	require.NoError(t, err)

	a := svc.Resolve(ctx, access.Actor{UserID: "sdr-1", Role: access.RoleSDR})
	assert.Equal(t, "Sam", a.DisplayName())

	unknown := svc.Resolve(ctx, access.Actor{UserID: "ghost", Role: access.RoleSDR})
	assert.Equal(t, "ghost", unknown.DisplayName())

	_, err = svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
