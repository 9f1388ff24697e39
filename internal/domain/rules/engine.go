package rules

import (
	"context"
	"errors"
	"sort"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/platform/logger"
)

// ActiveRuleSource es lo único que el motor necesita del RuleStore.
type ActiveRuleSource interface {
	ListActive(ctx context.Context, subject access.EntityType) ([]Rule, error)
}

// AuditRecorder es el sink append-only (audit.Log lo implementa).
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// MatchKey identifica un resultado cacheable: (rule, entityType, entity, user).
type MatchKey struct {
	RuleID     string
	EntityType access.EntityType
	EntityID   string
	UserID     string
}

type CachedMatch struct {
	Matches     bool
	Permissions Permissions
	EvaluatedAt time.Time
}

// MatchCache es opcional; evalcache.Cache lo implementa.
type MatchCache interface {
	Lookup(ctx context.Context, key MatchKey) (CachedMatch, bool)
	Remember(ctx context.Context, key MatchKey, m CachedMatch)
}

// Subject es la entidad sobre la que se evalúa.
type Subject struct {
	Type      access.EntityType
	ID        string
	Snapshot  Snapshot
	UpdatedAt time.Time
}

type Engine struct {
	rules ActiveRuleSource
	audit AuditRecorder
	cache MatchCache
	log   logger.Logger
	now   func() time.Time
}

type EngineOption func(*Engine)

func WithCache(c MatchCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(rules ActiveRuleSource, rec AuditRecorder, opts ...EngineOption) *Engine {
	e := &Engine{
		rules: rules,
		audit: rec,
		log:   logger.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(map[string]any{"component": "rule_engine"})
	return e
}

// SortRules ordena por prioridad desc; empate: createdAt asc, luego id asc.
func SortRules(rs []Rule) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Priority != rs[j].Priority {
			return rs[i].Priority > rs[j].Priority
		}
		if !rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		}
		return rs[i].ID < rs[j].ID
	})
}

// EvaluateAccess corre las reglas activas del tipo sobre el snapshot y hace
// el merge aditivo de permisos. Solo falla si no se pudieron leer las reglas.
func (e *Engine) EvaluateAccess(ctx context.Context, subject Subject, actor access.Actor) (Evaluation, error) {
	out := Evaluation{FiredActions: []FiredAction{}}

	active, err := e.rules.ListActive(ctx, subject.Type)
	if err != nil {
		return Evaluation{}, err
	}

	candidates := make([]Rule, 0, len(active))
	for _, r := range active {
		if r.IsActive && r.SubjectType == subject.Type {
			candidates = append(candidates, r)
		}
	}
	SortRules(candidates)

	for _, r := range candidates {
		matched, err := e.match(ctx, r, subject, actor)
		if err != nil {
			out.Degraded = append(out.Degraded, r.ID)
			e.recordDegraded(ctx, r, subject, actor, err)
			continue
		}
		if !matched {
			continue
		}

		// una regla de menor prioridad solo puede sumar permisos
		out.Permissions = out.Permissions.Union(r.Action.Permissions)
		out.FiredActions = append(out.FiredActions, FiredAction{
			RuleID:   r.ID,
			RuleName: r.Name,
			Priority: r.Priority,
			Action:   r.Action,
		})
		e.recordMatch(ctx, r, subject, actor)
	}

	return out, nil
}

func (e *Engine) match(ctx context.Context, r Rule, subject Subject, actor access.Actor) (bool, error) {
	key := MatchKey{RuleID: r.ID, EntityType: subject.Type, EntityID: subject.ID, UserID: actor.UserID}
	useCache := e.cache != nil && subject.ID != "" && r.ID != ""

	if useCache {
		if m, ok := e.cache.Lookup(ctx, key); ok && fresh(m, r, subject) {
			return m.Matches, nil
		}
	}

	matched, err := Check(subject.Snapshot, r.Condition)
	if err != nil {
		// degradado: no se cachea para que cada evaluación quede auditada
		return false, err
	}

	if useCache {
		e.cache.Remember(ctx, key, CachedMatch{
			Matches:     matched,
			Permissions: r.Action.Permissions,
			EvaluatedAt: e.now(),
		})
	}
	return matched, nil
}

// fresh descarta resultados calculados antes del último cambio de la regla o de la entidad.
func fresh(m CachedMatch, r Rule, subject Subject) bool {
	if m.EvaluatedAt.Before(r.UpdatedAt) {
		return false
	}
	if !subject.UpdatedAt.IsZero() && m.EvaluatedAt.Before(subject.UpdatedAt) {
		return false
	}
	return true
}

func (e *Engine) recordMatch(ctx context.Context, r Rule, subject Subject, actor access.Actor) {
	if e.audit == nil {
		return
	}
	err := e.audit.Record(ctx, audit.Entry{
		RuleID:     audit.RuleRef(r.ID),
		EntityType: string(subject.Type),
		EntityID:   subject.ID,
		UserID:     actor.UserID,
		Action:     audit.ActionRuleMatched,
		Details: map[string]any{
			"rule_name":   r.Name,
			"priority":    r.Priority,
			"action_type": string(r.Action.Type),
			"target_type": string(r.Action.Target.Type),
			"target_id":   r.Action.Target.ID,
			"permissions": r.Action.Permissions,
			"user_role":   string(actor.Role),
		},
	})
	if err != nil {
		e.log.Warn("rule match not audited", map[string]any{"rule_id": r.ID, "error": err.Error()})
	}
}

func (e *Engine) recordDegraded(ctx context.Context, r Rule, subject Subject, actor access.Actor, cause error) {
	fields := map[string]any{
		"rule_id":     r.ID,
		"entity_type": string(subject.Type),
		"entity_id":   subject.ID,
		"error":       cause.Error(),
	}
	e.log.Warn("rule evaluation degraded", fields)

	if e.audit == nil {
		return
	}

	details := map[string]any{
		"rule_name": r.Name,
		"field":     r.Condition.Field,
		"operator":  string(r.Condition.Operator),
		"reason":    cause.Error(),
	}
	var de *DegradedError
	if errors.As(cause, &de) {
		details["reason"] = de.Reason
	}

	if err := e.audit.Record(ctx, audit.Entry{
		RuleID:     audit.RuleRef(r.ID),
		EntityType: string(subject.Type),
		EntityID:   subject.ID,
		UserID:     actor.UserID,
		Action:     audit.ActionRuleDegraded,
		Details:    details,
	}); err != nil {
		e.log.Warn("degraded evaluation not audited", map[string]any{"rule_id": r.ID, "error": err.Error()})
	}
}
