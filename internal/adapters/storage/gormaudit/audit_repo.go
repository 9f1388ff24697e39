package gormaudit

import (
	"context"
	"encoding/json"
	"time"

	"crm-access-engine/internal/domain/audit"

	"gorm.io/gorm"
)

// --- Persistence Model ---

type auditModel struct {
	ID         string    `gorm:"primaryKey"`
	RuleID     *string   `gorm:"index:idx_audit_rule"`
	EntityType string    `gorm:"index:idx_audit_entity;not null"`
	EntityID   string    `gorm:"index:idx_audit_entity;not null"`
	UserID     string    `gorm:"not null"`
	Action     string    `gorm:"index;not null"`
	Details    string    `gorm:"type:text;default:'{}'"` // JSON
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (auditModel) TableName() string {
	return "access_audit_log"
}

// --- Repository Implementation ---

// Repository implementa audit.Repository sobre sqlite. Solo Create y Find:
// no expone update ni delete.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&auditModel{})
}

func (r *Repository) Append(ctx context.Context, e audit.Entry) error {
	m, err := toModel(e)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *Repository) List(ctx context.Context, filter audit.ListFilter) ([]audit.Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Model(&auditModel{})
	if filter.EntityType != "" {
		q = q.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q = q.Where("entity_id = ?", filter.EntityID)
	}
	if filter.RuleID != "" {
		q = q.Where("rule_id = ?", filter.RuleID)
	}
	if len(filter.Actions) > 0 {
		acts := make([]string, 0, len(filter.Actions))
		for _, a := range filter.Actions {
			acts = append(acts, string(a))
		}
		q = q.Where("action IN ?", acts)
	}

	var models []auditModel
	if err := q.Order("created_at DESC").Order("rowid DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]audit.Entry, 0, len(models))
	for _, m := range models {
		e, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) CountByRule(ctx context.Context, ruleID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&auditModel{}).Where("rule_id = ?", ruleID).Count(&n).Error
	return int(n), err
}

func toModel(e audit.Entry) (auditModel, error) {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return auditModel{}, err
	}
	return auditModel{
		ID:         e.ID,
		RuleID:     e.RuleID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		UserID:     e.UserID,
		Action:     string(e.Action),
		Details:    string(raw),
		CreatedAt:  e.Timestamp.UTC(),
	}, nil
}

func toDomain(m auditModel) (audit.Entry, error) {
	e := audit.Entry{
		ID:         m.ID,
		RuleID:     m.RuleID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		UserID:     m.UserID,
		Action:     audit.Action(m.Action),
		Details:    map[string]any{},
		Timestamp:  m.CreatedAt,
	}
	if m.Details != "" {
		if err := json.Unmarshal([]byte(m.Details), &e.Details); err != nil {
			return audit.Entry{}, err
		}
	}
	return e, nil
}
