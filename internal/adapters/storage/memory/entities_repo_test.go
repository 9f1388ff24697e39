package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLead(id string) entities.Entity {
	t0 := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	return entities.Entity{
		ID:            id,
		Type:          access.EntityLead,
		PoolStatus:    entities.PoolOpen,
		PoolEnteredAt: &t0,
		Fields:        map[string]any{"state": "TX"},
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
}

func TestEntityRepo_ClaimIfUnowned_ExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepo()
	require.NoError(t, repo.Create(ctx, openLead("lead-1")))

	const n = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			owner := "user-" + string(rune('a'+i%26))
			_, ok, err := repo.ClaimIfUnowned(ctx, access.EntityLead, "lead-1", entities.PoolOpen, owner, time.Now())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	got, err := repo.GetByID(ctx, access.EntityLead, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, entities.PoolClaimed, got.PoolStatus)
	require.NotNil(t, got.OwnerID)
	require.NotNil(t, got.ClaimedAt)
}

func TestEntityRepo_ClaimRequiresExpectedStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepo()
	require.NoError(t, repo.Create(ctx, openLead("lead-1")))

	_, ok, err := repo.ClaimIfUnowned(ctx, access.EntityLead, "lead-1", entities.PoolAvailableToHealthCoaches, "u1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.ClaimIfUnowned(ctx, access.EntityContact, "lead-1", entities.PoolOpen, "u1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntityRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepo()
	require.NoError(t, repo.Create(ctx, openLead("lead-1")))

	got, err := repo.GetByID(ctx, access.EntityLead, "lead-1")
	require.NoError(t, err)
	got.Fields["state"] = "CA"

	again, err := repo.GetByID(ctx, access.EntityLead, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "TX", again.Fields["state"])

	_, err = repo.GetByID(ctx, access.EntityLead, "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestEntityRepo_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewEntityRepo()
	require.NoError(t, repo.Create(ctx, openLead("lead-1")))

	e, ok, err := repo.TransitionStatus(ctx, access.EntityLead, "lead-1", entities.PoolOpen, entities.PoolAvailableToHealthCoaches, time.Now())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entities.PoolAvailableToHealthCoaches, e.PoolStatus)

	list, err := repo.ListByPoolStatus(ctx, access.EntityLead, entities.PoolOpen)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = repo.ListByPoolStatus(ctx, access.EntityLead, entities.PoolAvailableToHealthCoaches)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
