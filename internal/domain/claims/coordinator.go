package claims

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/audit"
	"crm-access-engine/internal/domain/entities"
	"crm-access-engine/internal/platform/logger"
)

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// NameResolver completa el nombre del actor para el audit (users.Service).
type NameResolver interface {
	Resolve(ctx context.Context, a access.Actor) access.Actor
}

// Coordinator hace la transición pool -> owner. La única escritura es el
// update condicional del repo; no hay locks en proceso.
type Coordinator struct {
	repo   entities.Repository
	config access.ConfigSource
	audit  AuditRecorder
	names  NameResolver
	log    logger.Logger
	now    func() time.Time
}

func NewCoordinator(repo entities.Repository, cfg access.ConfigSource, rec AuditRecorder, names NameResolver, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		repo:   repo,
		config: cfg,
		audit:  rec,
		names:  names,
		log:    log.With(map[string]any{"component": "claims"}),
		now:    time.Now,
	}
}

// Claim asigna la entidad al actor. Errores: ErrNotFound, ErrAlreadyClaimed,
// *NotEligibleError, ErrRaceLost.
func (c *Coordinator) Claim(ctx context.Context, actor access.Actor, t access.EntityType, id string) (entities.Entity, error) {
	id = strings.TrimSpace(id)
	if strings.TrimSpace(actor.UserID) == "" || id == "" {
		return entities.Entity{}, ErrInvalidInput
	}

	cfg := c.config.Snapshot()
	now := c.now()

	if !t.PoolEligible() {
		d := access.CanClaim(actor.Role, t, nil, time.Time{}, cfg, now)
		return entities.Entity{}, &NotEligibleError{Reason: d.Reason}
	}

	current, err := c.repo.GetByID(ctx, t, id)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			return entities.Entity{}, ErrNotFound
		}
		return entities.Entity{}, err
	}

	if !current.PoolStatus.Claimable() || !current.Unassigned() {
		return entities.Entity{}, ErrAlreadyClaimed
	}

	decision := decide(actor, current, cfg, now)
	if !decision.Allowed {
		c.recordRejected(ctx, actor, current, decision.Reason)
		return entities.Entity{}, &NotEligibleError{Reason: decision.Reason}
	}

	claimed, ok, err := c.repo.ClaimIfUnowned(ctx, t, current.ID, current.PoolStatus, actor.UserID, now)
	if err != nil {
		c.log.Error("claim update failed", map[string]any{"entity_type": string(t), "entity_id": id, "error": err.Error()})
		return entities.Entity{}, err
	}
	if !ok {
		c.log.Info("claim race lost", map[string]any{"entity_type": string(t), "entity_id": id, "user_id": actor.UserID})
		return entities.Entity{}, ErrRaceLost
	}

	c.recordClaimed(ctx, actor, current, claimed)
	return claimed, nil
}

// decide aplica la política estática; available_to_health_coaches es una
// liberación explícita: saltea el umbral para coaches y excluye a SDR.
func decide(actor access.Actor, e entities.Entity, cfg access.GlobalAccessConfig, now time.Time) access.ClaimDecision {
	if e.PoolStatus == entities.PoolAvailableToHealthCoaches {
		switch actor.Role {
		case access.RoleHealthCoach:
			return access.ClaimDecision{Allowed: true}
		case access.RoleSDR:
			return access.ClaimDecision{Reason: "Lead is reserved for health coaches"}
		}
	}
	return access.CanClaim(actor.Role, e.Type, nil, e.ReferenceTime(), cfg, now)
}

// ListAvailable devuelve lo que el actor ve hoy en el pool, más viejo primero.
func (c *Coordinator) ListAvailable(ctx context.Context, actor access.Actor) ([]entities.Entity, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return nil, ErrInvalidInput
	}

	cfg := c.config.Snapshot()
	now := c.now()
	out := make([]entities.Entity, 0)

	for _, t := range access.AllEntityTypes {
		if !t.PoolEligible() {
			continue
		}

		items, err := c.repo.ListByPoolStatus(ctx, t, entities.PoolOpen, entities.PoolAvailableToHealthCoaches)
		if err != nil {
			return nil, err
		}

		for _, e := range items {
			if !e.Unassigned() {
				continue
			}
			if visibleInPool(actor, e, cfg, now) {
				out = append(out, e)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].ReferenceTime(), out[j].ReferenceTime()
		if !ri.Equal(rj) {
			return ri.Before(rj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func visibleInPool(actor access.Actor, e entities.Entity, cfg access.GlobalAccessConfig, now time.Time) bool {
	if e.PoolStatus == entities.PoolAvailableToHealthCoaches {
		return actor.Role == access.RoleHealthCoach ||
			(actor.Role == access.RoleAdmin && cfg.AdminCanSeeAllRecords)
	}
	return access.CanView(actor.Role, e.Type, nil, actor.UserID, e.ReferenceTime(), cfg, now)
}

func (c *Coordinator) actorName(ctx context.Context, actor access.Actor) string {
	if c.names != nil {
		actor = c.names.Resolve(ctx, actor)
	}
	return actor.DisplayName()
}

func (c *Coordinator) recordClaimed(ctx context.Context, actor access.Actor, before, after entities.Entity) {
	if c.audit == nil {
		return
	}

	action := audit.ActionContactClaimed
	if after.Type == access.EntityLead {
		action = audit.ActionLeadClaimed
	}

	details := map[string]any{
		"user_role":       string(actor.Role),
		"user_name":       c.actorName(ctx, actor),
		"previous_status": string(before.PoolStatus),
	}
	if before.PoolEnteredAt != nil {
		details["pool_entered_at"] = before.PoolEnteredAt.UTC().Format(time.RFC3339)
	}

	ts := after.UpdatedAt
	if after.ClaimedAt != nil {
		ts = *after.ClaimedAt
	}

	if err := c.audit.Record(ctx, audit.Entry{
		EntityType: string(after.Type),
		EntityID:   after.ID,
		UserID:     actor.UserID,
		Action:     action,
		Details:    details,
		Timestamp:  ts,
	}); err != nil {
		c.log.Error("claim not audited", map[string]any{"entity_id": after.ID, "error": err.Error()})
	}
}

func (c *Coordinator) recordRejected(ctx context.Context, actor access.Actor, e entities.Entity, reason string) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Record(ctx, audit.Entry{
		EntityType: string(e.Type),
		EntityID:   e.ID,
		UserID:     actor.UserID,
		Action:     audit.ActionClaimRejected,
		Details: map[string]any{
			"user_role": string(actor.Role),
			"reason":    reason,
		},
	}); err != nil {
		c.log.Warn("claim rejection not audited", map[string]any{"entity_id": e.ID, "error": err.Error()})
	}
}
