package rules

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// ReferenceChecker responde si el audit log ya referencia una regla.
type ReferenceChecker interface {
	HasRuleReferences(ctx context.Context, ruleID string) (bool, error)
}

// Service es el RuleStore de cara a la API de administración.
type Service struct {
	repo  Repository
	refs  ReferenceChecker
	audit AuditRecorder
	log   logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, refs ReferenceChecker, rec AuditRecorder, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		refs:  refs,
		audit: rec,
		log:   log.With(map[string]any{"component": "rules"}),
		now:   time.Now,
	}
}

type CreateInput struct {
	Name        string
	Description string
	IsActive    *bool // nil = activa
	Priority    int
	SubjectType access.EntityType
	Condition   Condition
	Action      Action
}

// UpdateInput es un PATCH: nil = no tocar.
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
	Priority    *int
	SubjectType *access.EntityType
	Condition   *Condition
	Action      *Action
}

type DeleteOutcome string

const (
	DeleteOutcomeDeleted  DeleteOutcome = "deleted"
	DeleteOutcomeDisabled DeleteOutcome = "disabled"
)

func (s *Service) List(ctx context.Context) ([]Rule, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	SortRules(items)
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (Rule, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Rule{}, ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Rule{}, ErrNotFound
	}
	if err != nil {
		return Rule{}, err
	}
	return r, nil
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (Rule, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return Rule{}, ErrInvalidInput
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := s.now()
	r := Rule{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsActive:    active,
		Priority:    in.Priority,
		SubjectType: in.SubjectType,
		Condition:   normalizeCondition(in.Condition),
		Action:      in.Action,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := Validate(r); err != nil {
		return Rule{}, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Rule{}, err
	}

	s.recordLifecycle(ctx, actor, r, audit.ActionRuleCreated)
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, id string, in UpdateInput) (Rule, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Rule{}, err
	}

	updated := current
	if in.Name != nil {
		updated.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updated.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		updated.IsActive = *in.IsActive
	}
	if in.Priority != nil {
		updated.Priority = *in.Priority
	}
	if in.SubjectType != nil {
		updated.SubjectType = *in.SubjectType
	}
	if in.Condition != nil {
		updated.Condition = normalizeCondition(*in.Condition)
	}
	if in.Action != nil {
		updated.Action = *in.Action
	}

	// El merge se valida completo: cambiar solo subjectType puede invalidar la condición.
	if err := Validate(updated); err != nil {
		return Rule{}, err
	}

	updated.UpdatedAt = s.now()
	if !updated.UpdatedAt.After(current.UpdatedAt) {
		// reloj congelado en tests: igual tiene que invalidar cache
		updated.UpdatedAt = current.UpdatedAt.Add(time.Nanosecond)
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return Rule{}, err
	}

	s.recordLifecycle(ctx, actor, updated, audit.ActionRuleUpdated)
	return updated, nil
}

// Delete borra la regla, salvo que el audit log ya la referencie: en ese caso
// solo se desactiva para no dejar historia huérfana.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) (DeleteOutcome, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	referenced := false
	if s.refs != nil {
		referenced, err = s.refs.HasRuleReferences(ctx, current.ID)
		if err != nil {
			return "", err
		}
	}

	if referenced {
		if current.IsActive {
			current.IsActive = false
			current.UpdatedAt = s.now()
			if err := s.repo.Update(ctx, current); err != nil {
				return "", err
			}
		}
		s.recordLifecycle(ctx, actor, current, audit.ActionRuleDisabled)
		return DeleteOutcomeDisabled, nil
	}

	if err := s.repo.Delete(ctx, current.ID); err != nil {
		return "", err
	}
	s.recordLifecycle(ctx, actor, current, audit.ActionRuleDeleted)
	return DeleteOutcomeDeleted, nil
}

// recordLifecycle no usa Entry.RuleID: esas referencias quedan reservadas a
// evaluaciones, que son las que fuerzan soft-delete.
func (s *Service) recordLifecycle(ctx context.Context, actor access.Actor, r Rule, action audit.Action) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		EntityType: "rule",
		EntityID:   r.ID,
		UserID:     actor.UserID,
		Action:     action,
		Details: map[string]any{
			"rule_name":    r.Name,
			"subject_type": string(r.SubjectType),
			"priority":     r.Priority,
			"is_active":    r.IsActive,
		},
	})
	if err != nil {
		s.log.Warn("rule lifecycle not audited", map[string]any{"rule_id": r.ID, "error": err.Error()})
	}
}

func normalizeCondition(c Condition) Condition {
	c.Field = strings.TrimSpace(c.Field)
	c.Operator = Operator(strings.ToLower(strings.TrimSpace(string(c.Operator))))
	return c
}
