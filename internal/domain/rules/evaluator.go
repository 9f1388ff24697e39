package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var ErrEvaluationDegraded = errors.New("evaluation degraded")

// DegradedError indica que la condición no pudo evaluarse (campo faltante,
// operador desconocido, valor malformado). Se trata como no-match.
type DegradedError struct {
	Field    string
	Operator Operator
	Reason   string
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s: field=%q operator=%q: %s", ErrEvaluationDegraded, e.Field, e.Operator, e.Reason)
}

func (e *DegradedError) Unwrap() error { return ErrEvaluationDegraded }

// Snapshot es la vista read-only de una entidad: nombre de campo -> valor.
// Un campo presente con valor nil es distinto de un campo ausente.
type Snapshot map[string]any

// Evaluate nunca falla: cualquier problema es no-match.
func Evaluate(s Snapshot, c Condition) bool {
	ok, _ := Check(s, c)
	return ok
}

// Check evalúa y además reporta si el resultado quedó degradado.
func Check(s Snapshot, c Condition) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = degraded(c, fmt.Sprintf("panic during evaluation: %v", r))
		}
	}()

	fieldVal, ok := s[c.Field]
	if !ok {
		return false, degraded(c, "field not present on snapshot")
	}

	switch c.Operator {
	case OpEqual:
		return equalValues(fieldVal, c.Value), nil

	case OpNotEqual:
		return !equalValues(fieldVal, c.Value), nil

	case OpGreater:
		cmp, ok := compareValues(fieldVal, c.Value)
		return ok && cmp > 0, nil

	case OpLess:
		cmp, ok := compareValues(fieldVal, c.Value)
		return ok && cmp < 0, nil

	case OpContains:
		return containsValue(fieldVal, c.Value), nil

	case OpIn:
		list, ok := asList(c.Value)
		if !ok {
			return false, degraded(c, "operator in requires an array value")
		}
		return member(list, fieldVal), nil

	case OpBetween:
		list, ok := asList(c.Value)
		if !ok || len(list) != 2 {
			return false, degraded(c, "operator between requires a [lo, hi] array value")
		}
		lo, okLo := compareValues(fieldVal, list[0])
		hi, okHi := compareValues(fieldVal, list[1])
		return okLo && okHi && lo >= 0 && hi <= 0, nil

	default:
		return false, degraded(c, "unsupported operator")
	}
}

func degraded(c Condition, reason string) *DegradedError {
	return &DegradedError{Field: c.Field, Operator: c.Operator, Reason: reason}
}

// normalize lleva los valores a un set chico de tipos: nil, bool, float64,
// string, time.Time, []any.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *string:
		if x == nil {
			return nil
		}
		return *x
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC()
	case time.Time:
		return x.UTC()
	case string, bool, float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func asList(v any) ([]any, bool) {
	n := normalize(v)
	list, ok := n.([]any)
	return list, ok
}

func toTime(v any) (time.Time, bool) {
	switch x := normalize(v).(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func equalValues(a, b any) bool {
	na, nb := normalize(a), normalize(b)

	// datetime vs string RFC3339: comparar como instantes
	if ta, ok := na.(time.Time); ok {
		tb, ok := toTime(nb)
		return ok && ta.Equal(tb)
	}
	if tb, ok := nb.(time.Time); ok {
		ta, ok := toTime(na)
		return ok && ta.Equal(tb)
	}

	return reflect.DeepEqual(na, nb)
}

// compareValues devuelve -1/0/1; ok=false si los tipos no son comparables.
func compareValues(a, b any) (int, bool) {
	na, nb := normalize(a), normalize(b)

	fa, okA := na.(float64)
	fb, okB := nb.(float64)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if okA || okB {
		return 0, false
	}

	// datetimes: time.Time o strings RFC3339 (los campos libres llegan como string desde JSON)
	ta, okA := toTime(na)
	tb, okB := toTime(nb)
	if !okA || !okB {
		return 0, false
	}
	return ta.Compare(tb), true
}

func containsValue(field, value any) bool {
	switch f := normalize(field).(type) {
	case string:
		s, ok := normalize(value).(string)
		return ok && strings.Contains(f, s)
	case []any:
		return member(f, value)
	default:
		return false
	}
}

func member(list []any, v any) bool {
	for _, item := range list {
		if equalValues(item, v) {
			return true
		}
	}
	return false
}
