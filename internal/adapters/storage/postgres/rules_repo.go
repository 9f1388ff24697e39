package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/rules"
)

type RulesRepo struct {
	db *sql.DB
}

func NewRulesRepo(db *sql.DB) *RulesRepo {
	return &RulesRepo{db: db}
}

const ruleColumns = `
	id, name, description,
	is_active, priority, subject_type,
	condition_field, condition_operator, condition_value,
	action_type, target_type, target_id,
	perm_read, perm_write, perm_assign, perm_delete,
	created_by, created_at, updated_at`

func (r *RulesRepo) Create(ctx context.Context, x rules.Rule) error {
	value, err := json.Marshal(x.Condition.Value)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO access_rules (`+ruleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		x.ID,
		x.Name,
		x.Description,
		x.IsActive,
		x.Priority,
		string(x.SubjectType),
		x.Condition.Field,
		string(x.Condition.Operator),
		value,
		string(x.Action.Type),
		string(x.Action.Target.Type),
		x.Action.Target.ID,
		x.Action.Permissions.Read,
		x.Action.Permissions.Write,
		x.Action.Permissions.Assign,
		x.Action.Permissions.Delete,
		x.CreatedBy,
		x.CreatedAt,
		x.UpdatedAt,
	)
	return err
}

func (r *RulesRepo) Update(ctx context.Context, x rules.Rule) error {
	value, err := json.Marshal(x.Condition.Value)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE access_rules
		SET
			name = $2,
			description = $3,
			is_active = $4,
			priority = $5,
			subject_type = $6,
			condition_field = $7,
			condition_operator = $8,
			condition_value = $9,
			action_type = $10,
			target_type = $11,
			target_id = $12,
			perm_read = $13,
			perm_write = $14,
			perm_assign = $15,
			perm_delete = $16,
			updated_at = $17
		WHERE id = $1
	`,
		x.ID,
		x.Name,
		x.Description,
		x.IsActive,
		x.Priority,
		string(x.SubjectType),
		x.Condition.Field,
		string(x.Condition.Operator),
		value,
		string(x.Action.Type),
		string(x.Action.Target.Type),
		x.Action.Target.ID,
		x.Action.Permissions.Read,
		x.Action.Permissions.Write,
		x.Action.Permissions.Assign,
		x.Action.Permissions.Delete,
		x.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return rules.ErrNotFound
	}
	return nil
}

func (r *RulesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return rules.ErrNotFound
	}
	return nil
}

func (r *RulesRepo) GetByID(ctx context.Context, id string) (rules.Rule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return rules.Rule{}, rules.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM access_rules
		WHERE id = $1
	`, id)

	x, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rules.Rule{}, rules.ErrNotFound
		}
		return rules.Rule{}, err
	}
	return x, nil
}

func (r *RulesRepo) List(ctx context.Context) ([]rules.Rule, error) {
	return r.query(ctx, `
		SELECT `+ruleColumns+`
		FROM access_rules
		ORDER BY priority DESC, created_at ASC, id ASC
	`)
}

func (r *RulesRepo) ListActive(ctx context.Context, subject access.EntityType) ([]rules.Rule, error) {
	return r.query(ctx, `
		SELECT `+ruleColumns+`
		FROM access_rules
		WHERE subject_type = $1 AND is_active
		ORDER BY priority DESC, created_at ASC, id ASC
	`, string(subject))
}

func (r *RulesRepo) query(ctx context.Context, q string, args ...any) ([]rules.Rule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]rules.Rule, 0)
	for rows.Next() {
		x, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func scanRule(s rowScanner) (rules.Rule, error) {
	var (
		x                      rules.Rule
		subject, op            string
		actionType, targetType string
		rawValue               []byte
	)
	if err := s.Scan(
		&x.ID,
		&x.Name,
		&x.Description,
		&x.IsActive,
		&x.Priority,
		&subject,
		&x.Condition.Field,
		&op,
		&rawValue,
		&actionType,
		&targetType,
		&x.Action.Target.ID,
		&x.Action.Permissions.Read,
		&x.Action.Permissions.Write,
		&x.Action.Permissions.Assign,
		&x.Action.Permissions.Delete,
		&x.CreatedBy,
		&x.CreatedAt,
		&x.UpdatedAt,
	); err != nil {
		return rules.Rule{}, err
	}

	x.SubjectType = access.EntityType(subject)
	x.Condition.Operator = rules.Operator(op)
	x.Action.Type = rules.ActionType(actionType)
	x.Action.Target.Type = rules.TargetType(targetType)

	if len(rawValue) > 0 {
		if err := json.Unmarshal(rawValue, &x.Condition.Value); err != nil {
			return rules.Rule{}, err
		}
	}
	return x, nil
}
