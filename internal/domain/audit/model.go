package audit

import "time"

// Action es un tag libre, pero el motor usa estos valores.
type Action string

const (
	ActionAccessGranted     Action = "access_granted"
	ActionAccessDenied      Action = "access_denied"
	ActionRuleMatched       Action = "rule_matched"
	ActionRuleDegraded      Action = "rule_degraded"
	ActionLeadClaimed       Action = "lead_claimed"
	ActionContactClaimed    Action = "contact_claimed"
	ActionReleasedToCoaches Action = "lead_released_to_health_coaches"
	ActionClaimRejected     Action = "claim_rejected"
	ActionRuleCreated       Action = "rule_created"
	ActionRuleUpdated       Action = "rule_updated"
	ActionRuleDeleted       Action = "rule_deleted"
	ActionRuleDisabled      Action = "rule_disabled"
)

// Entry es un registro append-only: nunca se actualiza ni se borra.
type Entry struct {
	ID string

	RuleID *string // nil para eventos que no vienen de una regla

	EntityType string
	EntityID   string
	UserID     string

	Action  Action
	Details map[string]any

	Timestamp time.Time
}

type ListFilter struct {
	EntityType string
	EntityID   string
	RuleID     string
	Actions    []Action
	Limit      int
}
