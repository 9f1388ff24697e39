package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/entities"
)

type EntitiesRepo struct {
	db *sql.DB
}

func NewEntitiesRepo(db *sql.DB) *EntitiesRepo {
	return &EntitiesRepo{db: db}
}

const entityColumns = `
	id, entity_type, owner_id,
	pool_status, pool_entered_at, claimed_at,
	fields,
	created_at, updated_at`

func (r *EntitiesRepo) Create(ctx context.Context, e entities.Entity) error {
	fields, err := json.Marshal(nonNilFields(e.Fields))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO crm_entities (`+entityColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		e.ID,
		string(e.Type),
		nullString(e.OwnerID),
		string(e.PoolStatus),
		nullTime(e.PoolEnteredAt),
		nullTime(e.ClaimedAt),
		fields,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return err
}

func (r *EntitiesRepo) GetByID(ctx context.Context, t access.EntityType, id string) (entities.Entity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Entity{}, entities.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+`
		FROM crm_entities
		WHERE id = $1 AND entity_type = $2
	`, id, string(t))

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Entity{}, entities.ErrNotFound
		}
		return entities.Entity{}, err
	}
	return e, nil
}

func (r *EntitiesRepo) ListByPoolStatus(ctx context.Context, t access.EntityType, statuses ...entities.PoolStatus) ([]entities.Entity, error) {
	args := []any{string(t)}
	q := `
		SELECT ` + entityColumns + `
		FROM crm_entities
		WHERE entity_type = $1`

	if len(statuses) > 0 {
		ss := make([]string, 0, len(statuses))
		for _, s := range statuses {
			ss = append(ss, string(s))
		}
		args = append(args, ss)
		q += ` AND pool_status = ANY($2)`
	}
	q += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entities.Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClaimIfUnowned es un único UPDATE condicional: la base serializa los
// claims concurrentes y solo uno ve una fila afectada.
func (r *EntitiesRepo) ClaimIfUnowned(ctx context.Context, t access.EntityType, id string, expected entities.PoolStatus, ownerID string, at time.Time) (entities.Entity, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE crm_entities
		SET
			owner_id = $4,
			pool_status = $5,
			claimed_at = $6,
			updated_at = $6
		WHERE id = $1
			AND entity_type = $2
			AND pool_status = $3
			AND owner_id IS NULL
		RETURNING `+entityColumns,
		id,
		string(t),
		string(expected),
		ownerID,
		string(entities.PoolClaimed),
		at,
	)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Entity{}, false, nil
		}
		return entities.Entity{}, false, err
	}
	return e, true, nil
}

func (r *EntitiesRepo) TransitionStatus(ctx context.Context, t access.EntityType, id string, from, to entities.PoolStatus, at time.Time) (entities.Entity, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE crm_entities
		SET
			pool_status = $4,
			updated_at = $5
		WHERE id = $1
			AND entity_type = $2
			AND pool_status = $3
			AND owner_id IS NULL
		RETURNING `+entityColumns,
		id,
		string(t),
		string(from),
		string(to),
		at,
	)

	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.Entity{}, false, nil
		}
		return entities.Entity{}, false, err
	}
	return e, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(s rowScanner) (entities.Entity, error) {
	var (
		e        entities.Entity
		typ      string
		status   string
		owner    sql.NullString
		entered  sql.NullTime
		claimed  sql.NullTime
		rawField []byte
	)
	if err := s.Scan(
		&e.ID,
		&typ,
		&owner,
		&status,
		&entered,
		&claimed,
		&rawField,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return entities.Entity{}, err
	}

	e.Type = access.EntityType(typ)
	e.PoolStatus = entities.PoolStatus(status)
	e.OwnerID = ptrString(owner)
	e.PoolEnteredAt = ptrTime(entered)
	e.ClaimedAt = ptrTime(claimed)

	e.Fields = map[string]any{}
	if len(rawField) > 0 {
		if err := json.Unmarshal(rawField, &e.Fields); err != nil {
			return entities.Entity{}, err
		}
	}
	return e, nil
}

func nonNilFields(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
