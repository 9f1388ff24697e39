package rules

import (
	"sort"

	"crm-access-engine/internal/domain/access"
)

type FieldType string

const (
	FieldDatetime  FieldType = "datetime"
	FieldNumber    FieldType = "number"
	FieldString    FieldType = "string"
	FieldEnum      FieldType = "enum"
	FieldReference FieldType = "reference"
)

// operatorsByType: qué operadores tienen sentido para cada tipo de campo.
var operatorsByType = map[FieldType][]Operator{
	FieldDatetime:  {OpGreater, OpLess, OpEqual, OpNotEqual, OpBetween},
	FieldNumber:    {OpGreater, OpLess, OpEqual, OpNotEqual, OpBetween, OpIn},
	FieldString:    {OpEqual, OpNotEqual, OpContains, OpIn},
	FieldEnum:      {OpEqual, OpNotEqual, OpIn},
	FieldReference: {OpEqual, OpNotEqual, OpIn},
}

// FieldDef describe un campo registrado para un subject type.
type FieldDef struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"` // solo enum
}

func (f FieldDef) Operators() []Operator {
	return operatorsByType[f.Type]
}

func (f FieldDef) Allows(op Operator) bool {
	for _, o := range operatorsByType[f.Type] {
		if o == op {
			return true
		}
	}
	return false
}

var poolStatusOptions = []string{"open", "claimed", "available_to_health_coaches"}

func commonFields(pool bool) []FieldDef {
	out := []FieldDef{
		{Name: "id", Type: FieldReference},
		{Name: "ownerId", Type: FieldReference},
		{Name: "createdAt", Type: FieldDatetime},
		{Name: "updatedAt", Type: FieldDatetime},
	}
	if pool {
		out = append(out,
			FieldDef{Name: "poolStatus", Type: FieldEnum, Options: poolStatusOptions},
			FieldDef{Name: "poolEnteredAt", Type: FieldDatetime},
			FieldDef{Name: "claimedAt", Type: FieldDatetime},
		)
	}
	return out
}

// registry es la tabla campo->tipo por subject type. Una regla solo puede
// referenciar campos de esta tabla.
var registry = map[access.EntityType][]FieldDef{
	access.EntityLead: append(commonFields(true),
		FieldDef{Name: "name", Type: FieldString},
		FieldDef{Name: "email", Type: FieldString},
		FieldDef{Name: "phone", Type: FieldString},
		FieldDef{Name: "state", Type: FieldString},
		FieldDef{Name: "tags", Type: FieldString},
		FieldDef{Name: "source", Type: FieldEnum, Options: []string{"web", "referral", "event", "ads", "import", "other"}},
		FieldDef{Name: "status", Type: FieldEnum, Options: []string{"new", "contacted", "qualified", "unqualified", "converted"}},
		FieldDef{Name: "leadScore", Type: FieldNumber},
		FieldDef{Name: "estimatedValue", Type: FieldNumber},
	),
	access.EntityContact: append(commonFields(true),
		FieldDef{Name: "name", Type: FieldString},
		FieldDef{Name: "email", Type: FieldString},
		FieldDef{Name: "phone", Type: FieldString},
		FieldDef{Name: "company", Type: FieldString},
		FieldDef{Name: "tags", Type: FieldString},
		FieldDef{Name: "lifecycleStage", Type: FieldEnum, Options: []string{"subscriber", "lead", "patient", "customer", "churned"}},
		FieldDef{Name: "sourceLeadId", Type: FieldReference},
	),
	access.EntityTask: append(commonFields(false),
		FieldDef{Name: "title", Type: FieldString},
		FieldDef{Name: "status", Type: FieldEnum, Options: []string{"todo", "in_progress", "done", "cancelled"}},
		FieldDef{Name: "priority", Type: FieldEnum, Options: []string{"low", "medium", "high", "urgent"}},
		FieldDef{Name: "dueDate", Type: FieldDatetime},
		FieldDef{Name: "relatedLeadId", Type: FieldReference},
		FieldDef{Name: "relatedContactId", Type: FieldReference},
	),
	access.EntityAppointment: append(commonFields(false),
		FieldDef{Name: "title", Type: FieldString},
		FieldDef{Name: "type", Type: FieldEnum, Options: []string{"discovery", "consultation", "follow_up", "coaching"}},
		FieldDef{Name: "status", Type: FieldEnum, Options: []string{"scheduled", "completed", "cancelled", "no_show"}},
		FieldDef{Name: "startsAt", Type: FieldDatetime},
		FieldDef{Name: "endsAt", Type: FieldDatetime},
		FieldDef{Name: "durationMinutes", Type: FieldNumber},
		FieldDef{Name: "location", Type: FieldString},
		FieldDef{Name: "contactId", Type: FieldReference},
	),
}

// LookupField devuelve la definición registrada para (subjectType, field).
func LookupField(subject access.EntityType, field string) (FieldDef, bool) {
	for _, f := range registry[subject] {
		if f.Name == field {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Fields devuelve una copia ordenada por nombre (para el endpoint /rules/fields).
func Fields(subject access.EntityType) []FieldDef {
	defs := registry[subject]
	out := make([]FieldDef, len(defs))
	copy(out, defs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
