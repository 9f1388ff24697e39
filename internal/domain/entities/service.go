package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/rules"
	"crm-access-engine/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("forbidden")
	ErrNotReleasable = errors.New("entity is not open for release")
)

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

type Service struct {
	repo  Repository
	audit AuditRecorder
	log   logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, rec AuditRecorder, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:  repo,
		audit: rec,
		log:   log.With(map[string]any{"component": "entities"}),
		now:   time.Now,
	}
}

type CreateInput struct {
	Type    access.EntityType
	OwnerID *string
	Fields  map[string]any

	// PoolEnteredAt permite importar registros que ya estaban en el pool.
	PoolEnteredAt *time.Time
}

// CanCreate: cualquier rol interno; patient no carga registros del CRM.
func CanCreate(a access.Actor) bool {
	switch a.Role {
	case access.RoleSDR, access.RoleHealthCoach, access.RoleAdmin:
		return true
	default:
		return false
	}
}

func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (Entity, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return Entity{}, ErrInvalidInput
	}
	if !CanCreate(actor) {
		return Entity{}, ErrForbidden
	}
	if !in.Type.Valid() {
		return Entity{}, fmt.Errorf("%w: unknown entity type %q", ErrInvalidInput, in.Type)
	}
	for k := range in.Fields {
		if IsReservedField(k) {
			return Entity{}, fmt.Errorf("%w: field %q is managed by the system", ErrInvalidInput, k)
		}
	}
	fields, err := rules.CoerceFields(in.Type, in.Fields)
	if err != nil {
		return Entity{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	e := Entity{
		ID:        uuid.NewString(),
		Type:      in.Type,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	if in.OwnerID != nil && strings.TrimSpace(*in.OwnerID) != "" {
		owner := strings.TrimSpace(*in.OwnerID)
		e.OwnerID = &owner
	}

	if e.Type.PoolEligible() {
		entered := now
		if in.PoolEnteredAt != nil && !in.PoolEnteredAt.IsZero() {
			if in.PoolEnteredAt.After(now) {
				return Entity{}, fmt.Errorf("%w: pool_entered_at is in the future", ErrInvalidInput)
			}
			entered = *in.PoolEnteredAt
		}
		e.PoolEnteredAt = &entered

		if e.Unassigned() {
			e.PoolStatus = PoolOpen
		} else {
			claimedAt := now
			e.PoolStatus = PoolClaimed
			e.ClaimedAt = &claimedAt
		}
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return Entity{}, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, t access.EntityType, id string) (Entity, error) {
	if strings.TrimSpace(id) == "" {
		return Entity{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, t, strings.TrimSpace(id))
}

// ListPool devuelve las entidades del tipo en alguno de los estados pedidos.
func (s *Service) ListPool(ctx context.Context, t access.EntityType, statuses ...PoolStatus) ([]Entity, error) {
	if !t.PoolEligible() {
		return []Entity{}, nil
	}
	return s.repo.ListByPoolStatus(ctx, t, statuses...)
}

// ReleaseToHealthCoaches pasa un lead open a available_to_health_coaches.
// Solo admin; a partir de ahí un health coach lo puede tomar sin esperar el umbral.
func (s *Service) ReleaseToHealthCoaches(ctx context.Context, actor access.Actor, id string) (Entity, error) {
	if actor.Role != access.RoleAdmin {
		return Entity{}, ErrForbidden
	}

	current, err := s.Get(ctx, access.EntityLead, id)
	if err != nil {
		return Entity{}, err
	}
	if current.PoolStatus != PoolOpen || !current.Unassigned() {
		return Entity{}, ErrNotReleasable
	}

	at := s.now()
	updated, ok, err := s.repo.TransitionStatus(ctx, access.EntityLead, current.ID, PoolOpen, PoolAvailableToHealthCoaches, at)
	if err != nil {
		return Entity{}, err
	}
	if !ok {
		return Entity{}, ErrNotReleasable
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: string(access.EntityLead),
			EntityID:   updated.ID,
			UserID:     actor.UserID,
			Action:     audit.ActionReleasedToCoaches,
			Details: map[string]any{
				"from":      string(PoolOpen),
				"to":        string(PoolAvailableToHealthCoaches),
				"user_role": string(actor.Role),
			},
			Timestamp: at,
		}); err != nil {
			s.log.Warn("release not audited", map[string]any{"entity_id": updated.ID, "error": err.Error()})
		}
	}

	s.log.Info("lead released to health coaches", map[string]any{"entity_id": updated.ID, "user_id": actor.UserID})
	return updated, nil
}
