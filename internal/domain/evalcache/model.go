package evalcache

import (
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/rules"
)

// Record es el resultado memoizado de una regla para (entidad, usuario).
// Es derivado: se puede tirar en cualquier momento.
type Record struct {
	RuleID     string            `json:"rule_id"`
	EntityType access.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	UserID     string            `json:"user_id"`

	Matches     bool              `json:"matches"`
	Permissions rules.Permissions `json:"permissions"`

	EvaluatedAt time.Time `json:"evaluated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Key arma la clave estable (rule, entityType, entity, user).
func Key(k rules.MatchKey) string {
	return strings.Join([]string{k.RuleID, string(k.EntityType), k.EntityID, k.UserID}, ":")
}

func (r Record) Key() string {
	return Key(rules.MatchKey{RuleID: r.RuleID, EntityType: r.EntityType, EntityID: r.EntityID, UserID: r.UserID})
}
