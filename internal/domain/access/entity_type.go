package access

import "strings"

type EntityType string

const (
	EntityLead        EntityType = "lead"
	EntityContact     EntityType = "contact"
	EntityTask        EntityType = "task"
	EntityAppointment EntityType = "appointment"
)

// AllEntityTypes en orden estable (útil para listados y validación).
var AllEntityTypes = []EntityType{EntityLead, EntityContact, EntityTask, EntityAppointment}

// ParseEntityType acepta singular o plural ("leads", "Lead").
func ParseEntityType(s string) (EntityType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, "s")

	switch EntityType(norm) {
	case EntityLead, EntityContact, EntityTask, EntityAppointment:
		return EntityType(norm), true
	default:
		return "", false
	}
}

// PoolEligible indica si el tipo participa del pool (y por lo tanto del claim).
func (t EntityType) PoolEligible() bool {
	switch t {
	case EntityLead, EntityContact:
		return true
	case EntityTask, EntityAppointment:
		return false
	default:
		return false
	}
}

func (t EntityType) Valid() bool {
	switch t {
	case EntityLead, EntityContact, EntityTask, EntityAppointment:
		return true
	default:
		return false
	}
}
