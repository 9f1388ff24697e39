package memory

import (
	"context"
	"testing"
	"time"

	"crm-access-engine/internal/domain/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepo_ListNewestFirstAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepo()
	t0 := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)

	entries := []audit.Entry{
		{ID: "1", RuleID: audit.RuleRef("r1"), EntityType: "lead", EntityID: "l1", Action: audit.ActionRuleMatched, Timestamp: t0},
		{ID: "2", EntityType: "lead", EntityID: "l1", Action: audit.ActionLeadClaimed, Timestamp: t0.Add(time.Minute)},
		{ID: "3", RuleID: audit.RuleRef("r1"), EntityType: "lead", EntityID: "l2", Action: audit.ActionRuleMatched, Timestamp: t0.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
	}

	got, err := repo.List(ctx, audit.ListFilter{EntityType: "lead", EntityID: "l1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "1", got[1].ID)

	got, err = repo.List(ctx, audit.ListFilter{Actions: []audit.Action{audit.ActionLeadClaimed}})
	require.NoError(t, err)
	require.Len(t, got, 1)

	n, err := repo.CountByRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountByRule(ctx, "r2")
	require.NoError(t, err)
	assert.Zero(t, n)
}
