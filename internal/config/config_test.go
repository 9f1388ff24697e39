package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"crm-access-engine/internal/domain/access"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("VALKEY_ADDRESS", "localhost:6379")
	t.Setenv("EVAL_CACHE_TTL", "45s")

	cfg := Load(NewViper())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "crm", cfg.Valkey.KeyPrefix)
	assert.Equal(t, 45*time.Second, cfg.EvalCacheTTL)
	assert.True(t, cfg.UsesValkey())
}

func TestLoad_BadTTLFallsBack(t *testing.T) {
	t.Setenv("EVAL_CACHE_TTL", "-5s")
	assert.Equal(t, 30*time.Second, Load(NewViper()).EvalCacheTTL)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAccessConfig_MergesOverDefaults(t *testing.T) {
	p := writeFile(t, "access.yaml", `
admin_can_see_all_records: false
lead:
  health_coach_unassigned_after_hours: 48
`)

	cfg, v, err := LoadAccessConfig(p)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.False(t, cfg.AdminCanSeeAllRecords)
	assert.Equal(t, 48.0, cfg.Lead.HealthCoachUnassignedAfterHours)
	// lo que no aparece en el archivo queda con el default
	assert.True(t, cfg.Lead.SDRCanSeeAllUnassigned)
	assert.True(t, cfg.Contact.HealthCoachCanSeeAll)
}

func TestLoadAccessConfig_NoPathUsesDefaults(t *testing.T) {
	cfg, v, err := LoadAccessConfig("")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, access.DefaultGlobalAccessConfig(), cfg)
}

func TestLoadAccessConfig_RejectsNegativeWindow(t *testing.T) {
	p := writeFile(t, "access.yaml", "lead:\n  health_coach_unassigned_after_hours: -1\n")

	_, _, err := LoadAccessConfig(p)
	require.ErrorIs(t, err, ErrInvalidAccessConfig)
}

func TestAccessConfigHolder_ReplaceKeepsSnapshotsIndependent(t *testing.T) {
	h := NewAccessConfigHolder(access.DefaultGlobalAccessConfig(), nil)
	before := h.Snapshot()

	next := access.DefaultGlobalAccessConfig()
	next.Lead.HealthCoachUnassignedAfterHours = 12
	require.NoError(t, h.Replace(next))

	assert.Equal(t, 24.0, before.Lead.HealthCoachUnassignedAfterHours)
	assert.Equal(t, 12.0, h.Snapshot().Lead.HealthCoachUnassignedAfterHours)

	bad := next
	bad.Lead.HealthCoachUnassignedAfterHours = -3
	require.ErrorIs(t, h.Replace(bad), ErrInvalidAccessConfig)
	assert.Equal(t, 12.0, h.Snapshot().Lead.HealthCoachUnassignedAfterHours)
}

func TestAccessConfigHolder_ReloadFromFile(t *testing.T) {
	p := writeFile(t, "access.yaml", "lead:\n  health_coach_unassigned_after_hours: 6\n")
	cfg, v, err := LoadAccessConfig(p)
	require.NoError(t, err)

	h := NewAccessConfigHolder(cfg, nil)
	require.NoError(t, os.WriteFile(p, []byte("lead:\n  health_coach_unassigned_after_hours: 2\n"), 0o600))
	require.NoError(t, v.ReadInConfig())

	h.reload(v, p)
	assert.Equal(t, 2.0, h.Snapshot().Lead.HealthCoachUnassignedAfterHours)
}
