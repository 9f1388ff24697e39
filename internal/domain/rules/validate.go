package rules

import (
	"errors"
	"fmt"
	"strings"

	"crm-access-engine/internal/domain/access"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrValidation = errors.New("validation error")

// Validate es precondición de create/update: una regla que no pasa nunca
// llega al motor.
func Validate(r Rule) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.SubjectType, validation.Required,
			validation.In(access.EntityLead, access.EntityContact, access.EntityTask, access.EntityAppointment)),
		validation.Field(&r.Condition, validation.By(conditionRule(r.SubjectType))),
		validation.Field(&r.Action, validation.By(actionRule)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func conditionRule(subject access.EntityType) validation.RuleFunc {
	return func(value any) error {
		c, ok := value.(Condition)
		if !ok {
			return errors.New("invalid condition")
		}
		if strings.TrimSpace(c.Field) == "" {
			return errors.New("field is required")
		}
		if _, ok := access.ParseEntityType(string(subject)); !ok {
			// el error ya lo reporta subjectType
			return nil
		}

		def, ok := LookupField(subject, c.Field)
		if !ok {
			return fmt.Errorf("field %q is not registered for %s", c.Field, subject)
		}
		if !def.Allows(c.Operator) {
			return fmt.Errorf("operator %q is not valid for %s field %q", c.Operator, def.Type, def.Name)
		}
		return validateConditionValue(def, c)
	}
}

func validateConditionValue(def FieldDef, c Condition) error {
	switch c.Operator {
	case OpIn:
		list, ok := asList(c.Value)
		if !ok || len(list) == 0 {
			return errors.New("operator in requires a non-empty array value")
		}
		for _, item := range list {
			if err := validateScalar(def, item); err != nil {
				return err
			}
		}
		return nil

	case OpBetween:
		list, ok := asList(c.Value)
		if !ok || len(list) != 2 {
			return errors.New("operator between requires a [lo, hi] array value")
		}
		for _, item := range list {
			if item == nil {
				return errors.New("between bounds cannot be null")
			}
			if err := validateScalar(def, item); err != nil {
				return err
			}
		}
		lo, hi := list[0], list[1]
		if def.Type == FieldDatetime {
			lo, _ = toTime(lo)
			hi, _ = toTime(hi)
		}
		if cmp, ok := compareValues(lo, hi); !ok || cmp > 0 {
			return errors.New("between requires lo <= hi")
		}
		return nil

	case OpGreater, OpLess:
		if c.Value == nil {
			return fmt.Errorf("operator %q requires a value", c.Operator)
		}
		return validateScalar(def, c.Value)

	case OpContains:
		if _, ok := normalize(c.Value).(string); !ok {
			return errors.New("operator contains requires a string value")
		}
		return nil

	case OpEqual, OpNotEqual:
		// null permitido: "ownerId = null" es una condición válida
		if c.Value == nil {
			return nil
		}
		return validateScalar(def, c.Value)

	default:
		return fmt.Errorf("unsupported operator %q", c.Operator)
	}
}

func validateScalar(def FieldDef, v any) error {
	n := normalize(v)
	switch def.Type {
	case FieldNumber:
		if _, ok := n.(float64); !ok {
			return fmt.Errorf("field %q expects a number", def.Name)
		}
	case FieldDatetime:
		if _, ok := toTime(n); !ok {
			return fmt.Errorf("field %q expects an RFC3339 datetime", def.Name)
		}
	case FieldEnum:
		s, ok := n.(string)
		if !ok {
			return fmt.Errorf("field %q expects one of %s", def.Name, strings.Join(def.Options, ", "))
		}
		for _, opt := range def.Options {
			if opt == s {
				return nil
			}
		}
		return fmt.Errorf("value %q is not an option of field %q", s, def.Name)
	case FieldString, FieldReference:
		if _, ok := n.(string); !ok {
			return fmt.Errorf("field %q expects a string", def.Name)
		}
	}
	return nil
}

// CoerceFields revisa los campos libres de una entidad contra la tabla del
// subject type. Datetimes quedan como time.Time y números como float64; las
// claves que no están en la tabla pasan sin tocar.
func CoerceFields(subject access.EntityType, fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		def, ok := LookupField(subject, k)
		if !ok || v == nil {
			out[k] = v
			continue
		}
		switch def.Type {
		case FieldDatetime:
			t, ok := toTime(v)
			if !ok {
				return nil, fmt.Errorf("field %q expects an RFC3339 datetime", k)
			}
			out[k] = t
		case FieldNumber:
			n, ok := normalize(v).(float64)
			if !ok {
				return nil, fmt.Errorf("field %q expects a number", k)
			}
			out[k] = n
		default:
			out[k] = v
		}
	}
	return out, nil
}

func actionRule(value any) error {
	a, ok := value.(Action)
	if !ok {
		return errors.New("invalid action")
	}

	return validation.ValidateStruct(&a,
		validation.Field(&a.Type, validation.Required,
			validation.In(ActionGrantAccess, ActionAssignEntity, ActionTriggerWorkflow, ActionSendNotification)),
		validation.Field(&a.Target, validation.By(targetRule(a.Type))),
		validation.Field(&a.Permissions, validation.By(func(v any) error {
			p, _ := v.(Permissions)
			if a.Type == ActionGrantAccess && !p.Any() {
				return errors.New("grant_access must grant at least one permission")
			}
			return nil
		})),
	)
}

func targetRule(actionType ActionType) validation.RuleFunc {
	return func(value any) error {
		t, ok := value.(Target)
		if !ok {
			return errors.New("invalid target")
		}
		return validation.ValidateStruct(&t,
			validation.Field(&t.Type, validation.Required, validation.In(TargetUser, TargetRole, TargetTeam)),
			validation.Field(&t.ID,
				validation.When(actionType == ActionAssignEntity, validation.Required),
				validation.When(t.Type == TargetRole && t.ID != "", validation.By(func(v any) error {
					s, _ := v.(string)
					if _, ok := access.ParseRole(s); !ok {
						return fmt.Errorf("unknown role %q", s)
					}
					return nil
				})),
			),
		)
	}
}
