package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"crm-access-engine/internal/domain/audit"
)

// AuditRepo solo hace INSERT y SELECT: el log es append-only.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, e audit.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO access_audit_log (
			id, rule_id,
			entity_type, entity_id, user_id,
			action, details, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		e.ID,
		nullString(e.RuleID),
		e.EntityType,
		e.EntityID,
		e.UserID,
		string(e.Action),
		details,
		e.Timestamp,
	)
	return err
}

func (r *AuditRepo) List(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 5)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if filter.RuleID != "" {
		add("rule_id = $%d", filter.RuleID)
	}
	if len(filter.Actions) > 0 {
		acts := make([]string, 0, len(filter.Actions))
		for _, a := range filter.Actions {
			acts = append(acts, string(a))
		}
		add("action = ANY($%d)", acts)
	}

	q := `
		SELECT id, rule_id, entity_type, entity_id, user_id, action, details, created_at
		FROM access_audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e      audit.Entry
			ruleID sql.NullString
			action string
			raw    []byte
		)
		if err := rows.Scan(&e.ID, &ruleID, &e.EntityType, &e.EntityID, &e.UserID, &action, &raw, &e.Timestamp); err != nil {
			return nil, err
		}
		e.RuleID = ptrString(ruleID)
		e.Action = audit.Action(action)
		e.Details = map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AuditRepo) CountByRule(ctx context.Context, ruleID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM access_audit_log WHERE rule_id = $1
	`, ruleID).Scan(&n)
	return n, err
}
