package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/entities"
	"crm-access-engine/internal/domain/rules"
	"crm-access-engine/internal/domain/users"
	"crm-access-engine/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

type RuleEvaluator interface {
	EvaluateAccess(ctx context.Context, subject rules.Subject, actor access.Actor) (rules.Evaluation, error)
}

type EntityReader interface {
	Get(ctx context.Context, t access.EntityType, id string) (entities.Entity, error)
}

type UserDirectory interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Decision es la única respuesta de autorización por request: base estática
// más lo que sumen las reglas.
type Decision struct {
	EntityType access.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	UserID     string            `json:"user_id"`
	Role       access.Role       `json:"role"`

	StaticView   bool                `json:"static_view"`
	Permissions  rules.Permissions   `json:"permissions"`
	FiredActions []rules.FiredAction `json:"fired_actions"`
	Degraded     []string            `json:"degraded,omitempty"`
}

type Service struct {
	engine   RuleEvaluator
	entities EntityReader
	users    UserDirectory
	config   access.ConfigSource
	audit    AuditRecorder
	log      logger.Logger
	now      func() time.Time
}

func NewService(engine RuleEvaluator, ents EntityReader, dir UserDirectory, cfg access.ConfigSource, rec AuditRecorder, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		engine:   engine,
		entities: ents,
		users:    dir,
		config:   cfg,
		audit:    rec,
		log:      log.With(map[string]any{"component": "authz"}),
		now:      time.Now,
	}
}

// Evaluate arma la decisión para actor sobre e. El config se lee una sola
// vez: un reload en el medio no mezcla versiones.
func (s *Service) Evaluate(ctx context.Context, actor access.Actor, e entities.Entity) (Decision, error) {
	cfg := s.config.Snapshot()
	now := s.now()

	staticView := access.CanView(actor.Role, e.Type, e.OwnerID, actor.UserID, e.ReferenceTime(), cfg, now)

	ev, err := s.engine.EvaluateAccess(ctx, e.Subject(), actor)
	if err != nil {
		s.log.Error("rule evaluation failed", map[string]any{"entity_type": string(e.Type), "entity_id": e.ID, "error": err.Error()})
		return Decision{}, err
	}

	perms := ev.Permissions
	perms.Read = perms.Read || staticView

	d := Decision{
		EntityType:   e.Type,
		EntityID:     e.ID,
		UserID:       actor.UserID,
		Role:         actor.Role,
		StaticView:   staticView,
		Permissions:  perms,
		FiredActions: ev.FiredActions,
		Degraded:     ev.Degraded,
	}
	if d.FiredActions == nil {
		d.FiredActions = []rules.FiredAction{}
	}

	s.record(ctx, d)
	return d, nil
}

// CanRead implementa entities.ReadGate.
func (s *Service) CanRead(ctx context.Context, actor access.Actor, e entities.Entity) (bool, error) {
	d, err := s.Evaluate(ctx, actor, e)
	if err != nil {
		return false, err
	}
	return d.Permissions.Read, nil
}

// Test evalúa (entityType, entityId, userId) para el endpoint de prueba de
// acceso. El caller necesita admin / rules:manage, salvo que se pruebe a sí mismo.
func (s *Service) Test(ctx context.Context, caller access.Actor, t access.EntityType, entityID, userID string) (Decision, error) {
	entityID = strings.TrimSpace(entityID)
	userID = strings.TrimSpace(userID)
	if entityID == "" || userID == "" {
		return Decision{}, ErrInvalidInput
	}
	if !t.Valid() {
		return Decision{}, ErrInvalidInput
	}
	if !rules.CanManage(caller) && caller.UserID != userID {
		return Decision{}, ErrForbidden
	}

	e, err := s.entities.Get(ctx, t, entityID)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return Decision{}, ErrNotFound
		}
		return Decision{}, err
	}

	actor, err := s.actorFor(ctx, caller, userID)
	if err != nil {
		return Decision{}, err
	}
	return s.Evaluate(ctx, actor, e)
}

func (s *Service) actorFor(ctx context.Context, caller access.Actor, userID string) (access.Actor, error) {
	u, err := s.users.Get(ctx, userID)
	if err == nil {
		a := u.Actor()
		if userID == caller.UserID {
			a.Permissions = caller.Permissions
		}
		return a, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return access.Actor{}, err
	}
	// fuera del directorio solo se puede probar a uno mismo (rol del token)
	if userID == caller.UserID {
		return caller, nil
	}
	return access.Actor{}, ErrNotFound
}

func (s *Service) record(ctx context.Context, d Decision) {
	if s.audit == nil {
		return
	}

	action := audit.ActionAccessDenied
	if d.Permissions.Read {
		action = audit.ActionAccessGranted
	}

	fired := make([]string, 0, len(d.FiredActions))
	for _, f := range d.FiredActions {
		fired = append(fired, f.RuleID)
	}

	details := map[string]any{
		"user_role":   string(d.Role),
		"static_view": d.StaticView,
		"permissions": d.Permissions,
		"fired_rules": fired,
	}
	if len(d.Degraded) > 0 {
		details["degraded_rules"] = d.Degraded
	}

	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: string(d.EntityType),
		EntityID:   d.EntityID,
		UserID:     d.UserID,
		Action:     action,
		Details:    details,
	}); err != nil {
		s.log.Warn("access decision not audited", map[string]any{"entity_id": d.EntityID, "error": err.Error()})
	}
}
