package entities

import (
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/rules"
)

// PoolStatus solo aplica a lead y contact.
type PoolStatus string

const (
	PoolOpen                     PoolStatus = "open"
	PoolClaimed                  PoolStatus = "claimed"
	PoolAvailableToHealthCoaches PoolStatus = "available_to_health_coaches"
)

func (s PoolStatus) Valid() bool {
	switch s {
	case PoolOpen, PoolClaimed, PoolAvailableToHealthCoaches:
		return true
	default:
		return false
	}
}

// Claimable: estados desde los que un claim puede pasar a claimed.
func (s PoolStatus) Claimable() bool {
	return s == PoolOpen || s == PoolAvailableToHealthCoaches
}

// Entity es el snapshot de un registro del CRM.
// Invariantes: claimed => OwnerID y ClaimedAt seteados; open => OwnerID nil.
type Entity struct {
	ID      string
	Type    access.EntityType
	OwnerID *string

	PoolStatus    PoolStatus // vacío para task/appointment
	PoolEnteredAt *time.Time
	ClaimedAt     *time.Time

	// Atributos libres que usan las condiciones de reglas (name, state, leadScore...).
	Fields map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Entity) Unassigned() bool {
	return e.OwnerID == nil || *e.OwnerID == ""
}

func (e Entity) Owner() string {
	if e.OwnerID == nil {
		return ""
	}
	return *e.OwnerID
}

// ReferenceTime es el inicio de la ventana de tiempo: entrada al pool o, si
// no hay, creación.
func (e Entity) ReferenceTime() time.Time {
	if e.PoolEnteredAt != nil && !e.PoolEnteredAt.IsZero() {
		return *e.PoolEnteredAt
	}
	return e.CreatedAt
}

// reservedFields los arma Snapshot; no se aceptan dentro de Fields.
var reservedFields = map[string]struct{}{
	"id":            {},
	"ownerId":       {},
	"createdAt":     {},
	"updatedAt":     {},
	"poolStatus":    {},
	"poolEnteredAt": {},
	"claimedAt":     {},
}

func IsReservedField(name string) bool {
	_, ok := reservedFields[name]
	return ok
}

// Snapshot es la vista plana que evalúan las condiciones. Los campos
// nullables quedan presentes con nil (distinto de "campo faltante").
func (e Entity) Snapshot() rules.Snapshot {
	s := make(rules.Snapshot, len(e.Fields)+len(reservedFields))
	for k, v := range e.Fields {
		s[k] = v
	}

	s["id"] = e.ID
	s["ownerId"] = nil
	if !e.Unassigned() {
		s["ownerId"] = *e.OwnerID
	}
	s["createdAt"] = e.CreatedAt
	s["updatedAt"] = e.UpdatedAt

	if e.Type.PoolEligible() {
		s["poolStatus"] = string(e.PoolStatus)
		s["poolEnteredAt"] = nil
		if e.PoolEnteredAt != nil {
			s["poolEnteredAt"] = *e.PoolEnteredAt
		}
		s["claimedAt"] = nil
		if e.ClaimedAt != nil {
			s["claimedAt"] = *e.ClaimedAt
		}
	}
	return s
}

func (e Entity) Subject() rules.Subject {
	return rules.Subject{
		Type:      e.Type,
		ID:        e.ID,
		Snapshot:  e.Snapshot(),
		UpdatedAt: e.UpdatedAt,
	}
}
