package access

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ClaimDecision es el resultado de CanClaim. Reason siempre viene cuando Allowed=false.
type ClaimDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() ClaimDecision { return ClaimDecision{Allowed: true} }

func deny(format string, args ...any) ClaimDecision {
	return ClaimDecision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// ElapsedHours = (now - ref) / 1h, como float.
func ElapsedHours(ref, now time.Time) float64 {
	return now.Sub(ref).Hours()
}

// CanView decide la visibilidad estática de un registro.
// ownerID nil = registro sin dueño (pool). ref es poolEnteredAt (o createdAt si no hay pool).
func CanView(role Role, entityType EntityType, ownerID *string, actingUserID string, ref time.Time, cfg GlobalAccessConfig, now time.Time) bool {
	if role == RoleAdmin && cfg.AdminCanSeeAllRecords {
		return true
	}

	flags := cfg.For(entityType)
	actingUserID = strings.TrimSpace(actingUserID)

	if ownerID != nil {
		// Registro con dueño: solo el propio dueño, si el flag lo permite.
		return actingUserID != "" && *ownerID == actingUserID && flags.UsersCanSeeOwn
	}

	switch role {
	case RoleSDR:
		return flags.SDRCanSeeAllUnassigned
	case RoleHealthCoach:
		if flags.HealthCoachCanSeeAll {
			return true
		}
		if !flags.HealthCoachCanSeeUnassigned || ref.IsZero() {
			return false
		}
		return ElapsedHours(ref, now) >= flags.HealthCoachUnassignedAfterHours
	case RoleAdmin, RolePatient:
		return false
	default:
		return false
	}
}

// CanClaim decide si el rol puede tomar un registro del pool.
func CanClaim(role Role, entityType EntityType, ownerID *string, ref time.Time, cfg GlobalAccessConfig, now time.Time) ClaimDecision {
	if !entityType.PoolEligible() {
		return deny("%s records cannot be claimed", entityTypeLabel(entityType))
	}

	if role == RoleAdmin && cfg.AdminCanSeeAllRecords {
		return allow()
	}

	if ownerID != nil {
		return deny("%s is already assigned", entityTypeLabel(entityType))
	}

	flags := cfg.For(entityType)

	switch role {
	case RoleSDR:
		if !flags.SDRCanSeeAllUnassigned {
			return deny("SDRs cannot access unassigned %ss", entityType)
		}
		return allow()

	case RoleHealthCoach:
		if flags.HealthCoachCanSeeAll {
			return allow()
		}
		if !flags.HealthCoachCanSeeUnassigned {
			return deny("health coaches cannot access unassigned %ss", entityType)
		}
		if ref.IsZero() {
			return deny("%s has no pool entry time", entityTypeLabel(entityType))
		}
		elapsed := ElapsedHours(ref, now)
		if elapsed >= flags.HealthCoachUnassignedAfterHours {
			return allow()
		}
		remaining := int(math.Ceil(flags.HealthCoachUnassignedAfterHours - elapsed))
		if remaining < 1 {
			remaining = 1
		}
		return deny("%s becomes available to health coaches in %d %s", entityTypeLabel(entityType), remaining, plural(remaining, "hour", "hours"))

	case RoleAdmin:
		return deny("admins cannot claim records unless they can see all records")

	case RolePatient:
		return deny("role %s cannot claim records", role)

	default:
		return deny("unknown role cannot claim records")
	}
}

func entityTypeLabel(t EntityType) string {
	s := string(t)
	if s == "" {
		return "Record"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
