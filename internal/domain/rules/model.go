package rules

import (
	"time"

	"crm-access-engine/internal/domain/access"
)

type Operator string

const (
	OpGreater  Operator = ">"
	OpLess     Operator = "<"
	OpEqual    Operator = "="
	OpNotEqual Operator = "!="
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpBetween  Operator = "between"
)

type ActionType string

const (
	ActionGrantAccess      ActionType = "grant_access"
	ActionAssignEntity     ActionType = "assign_entity"
	ActionTriggerWorkflow  ActionType = "trigger_workflow"
	ActionSendNotification ActionType = "send_notification"
)

type TargetType string

const (
	TargetUser TargetType = "user"
	TargetRole TargetType = "role"
	TargetTeam TargetType = "team"
)

// Condition compara un campo del snapshot contra Value (JSON ya decodificado:
// float64, string, bool, nil, []any).
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

type Target struct {
	Type TargetType `json:"type"`
	ID   string     `json:"id,omitempty"`
}

// Permissions son flags aditivos: un merge solo puede pasar false -> true.
type Permissions struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Assign bool `json:"assign"`
	Delete bool `json:"delete"`
}

// Union hace OR por flag.
func (p Permissions) Union(o Permissions) Permissions {
	return Permissions{
		Read:   p.Read || o.Read,
		Write:  p.Write || o.Write,
		Assign: p.Assign || o.Assign,
		Delete: p.Delete || o.Delete,
	}
}

func (p Permissions) Any() bool {
	return p.Read || p.Write || p.Assign || p.Delete
}

type Action struct {
	Type        ActionType  `json:"type"`
	Target      Target      `json:"target"`
	Permissions Permissions `json:"permissions"`
}

type Rule struct {
	ID          string
	Name        string
	Description string

	IsActive bool
	Priority int // mayor = se evalúa antes

	SubjectType access.EntityType

	Condition Condition
	Action    Action

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FiredAction es lo que el motor devuelve al caller para que lo ejecute (o no).
type FiredAction struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Priority int    `json:"priority"`
	Action   Action `json:"action"`
}

// Evaluation es el resultado de EvaluateAccess.
type Evaluation struct {
	Permissions  Permissions   `json:"permissions"`
	FiredActions []FiredAction `json:"fired_actions"`

	// IDs de reglas cuya condición quedó degradada (campo faltante / operador inválido).
	Degraded []string `json:"degraded,omitempty"`
}
