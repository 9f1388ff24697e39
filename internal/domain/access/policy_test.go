package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var policyNow = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

func TestCanView_OwnedByOtherUser_DeniedForNonAdmin(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	for _, role := range []Role{RoleSDR, RoleHealthCoach, RolePatient} {
		for _, et := range AllEntityTypes {
			ok := CanView(role, et, ptr("someone-else"), "user-1", policyNow.Add(-100*time.Hour), cfg, policyNow)
			assert.False(t, ok, "role=%s type=%s", role, et)
		}
	}
}

func TestCanClaim_OwnedByOtherUser_DeniedForNonAdmin(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	for _, role := range []Role{RoleSDR, RoleHealthCoach, RolePatient} {
		d := CanClaim(role, EntityLead, ptr("someone-else"), policyNow.Add(-100*time.Hour), cfg, policyNow)
		assert.False(t, d.Allowed, "role=%s", role)
		assert.NotEmpty(t, d.Reason)
	}
}

func TestCanView_OwnRecord(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()
	assert.True(t, CanView(RoleHealthCoach, EntityTask, ptr("user-1"), "user-1", time.Time{}, cfg, policyNow))

	cfg.Task.UsersCanSeeOwn = false
	assert.False(t, CanView(RoleHealthCoach, EntityTask, ptr("user-1"), "user-1", time.Time{}, cfg, policyNow))
}

func TestCanView_AdminSeesEverything(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()
	assert.True(t, CanView(RoleAdmin, EntityLead, ptr("someone"), "admin-1", time.Time{}, cfg, policyNow))
	assert.True(t, CanView(RoleAdmin, EntityLead, nil, "admin-1", time.Time{}, cfg, policyNow))

	cfg.AdminCanSeeAllRecords = false
	assert.False(t, CanView(RoleAdmin, EntityLead, ptr("someone"), "admin-1", time.Time{}, cfg, policyNow))
}

func TestCanView_HealthCoach_UnassignedLead_TimeGate(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	assert.False(t, CanView(RoleHealthCoach, EntityLead, nil, "hc-1", policyNow.Add(-23*time.Hour), cfg, policyNow))
	assert.True(t, CanView(RoleHealthCoach, EntityLead, nil, "hc-1", policyNow.Add(-24*time.Hour), cfg, policyNow))
}

func TestCanView_HealthCoach_UnassignedContact_NoTimeGate(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()
	assert.True(t, CanView(RoleHealthCoach, EntityContact, nil, "hc-1", policyNow, cfg, policyNow))

	cfg.Contact.HealthCoachCanSeeAll = false
	assert.False(t, CanView(RoleHealthCoach, EntityContact, nil, "hc-1", policyNow, cfg, policyNow))
}

func TestCanClaim_SDR_OpenLead_IgnoresPoolAge(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	for _, age := range []time.Duration{0, time.Minute, 23 * time.Hour, 240 * time.Hour} {
		d := CanClaim(RoleSDR, EntityLead, nil, policyNow.Add(-age), cfg, policyNow)
		assert.True(t, d.Allowed, "age=%s", age)
		assert.Empty(t, d.Reason)
	}
}

func TestCanClaim_HealthCoach_Lead_23h_Denied_24h_Allowed(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	d := CanClaim(RoleHealthCoach, EntityLead, nil, policyNow.Add(-23*time.Hour), cfg, policyNow)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "1 hour")

	d = CanClaim(RoleHealthCoach, EntityLead, nil, policyNow.Add(-24*time.Hour), cfg, policyNow)
	assert.True(t, d.Allowed)
}

func TestCanClaim_HealthCoach_RemainingHoursRoundUp(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	// faltan 4h30m -> "5 hours"
	d := CanClaim(RoleHealthCoach, EntityLead, nil, policyNow.Add(-19*time.Hour-30*time.Minute), cfg, policyNow)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "5 hours")
}

func TestCanClaim_RolesOutsideClaimers_Denied(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	d := CanClaim(RolePatient, EntityLead, nil, policyNow.Add(-48*time.Hour), cfg, policyNow)
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)

	d = CanClaim(Role("typo_role"), EntityLead, nil, policyNow.Add(-48*time.Hour), cfg, policyNow)
	assert.False(t, d.Allowed)
}

func TestCanClaim_NonPoolTypes_Denied(t *testing.T) {
	cfg := DefaultGlobalAccessConfig()

	for _, et := range []EntityType{EntityTask, EntityAppointment} {
		d := CanClaim(RoleAdmin, et, nil, policyNow, cfg, policyNow)
		assert.False(t, d.Allowed, "type=%s", et)
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"SDR":          RoleSDR,
		"health_coach": RoleHealthCoach,
		"Health-Coach": RoleHealthCoach,
		" ADMIN ":      RoleAdmin,
		"patient":      RolePatient,
	}
	for in, want := range cases {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseRole("sdr_manager")
	assert.False(t, ok)
}

func TestParseEntityType(t *testing.T) {
	got, ok := ParseEntityType("Leads")
	assert.True(t, ok)
	assert.Equal(t, EntityLead, got)

	_, ok = ParseEntityType("invoice")
	assert.False(t, ok)
}
