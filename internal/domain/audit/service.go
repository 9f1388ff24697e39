package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"crm-access-engine/internal/platform/logger"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Log es el sink append-only que usan el rule engine, el claim coordinator y authz.
type Log struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

func NewLog(repo Repository, log logger.Logger) *Log {
	if log == nil {
		log = logger.Nop()
	}
	return &Log{
		repo: repo,
		log:  log.With(map[string]any{"component": "audit"}),
		now:  time.Now,
	}
}

// Record completa ID y Timestamp si vienen vacíos y hace append.
func (l *Log) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(string(e.Action)) == "" {
		return ErrInvalidInput
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}

	if err := l.repo.Append(ctx, e); err != nil {
		l.log.Error("audit append failed", map[string]any{
			"action":      string(e.Action),
			"entity_type": e.EntityType,
			"entity_id":   e.EntityID,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

func (l *Log) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]Entry, error) {
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return nil, ErrInvalidInput
	}
	return l.repo.List(ctx, ListFilter{
		EntityType: entityType,
		EntityID:   entityID,
		Limit:      limit,
	})
}

// HasRuleReferences se usa para decidir soft-disable vs delete de una regla.
func (l *Log) HasRuleReferences(ctx context.Context, ruleID string) (bool, error) {
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return false, ErrInvalidInput
	}
	n, err := l.repo.CountByRule(ctx, ruleID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RuleRef arma el puntero nullable de RuleID.
func RuleRef(id string) *string {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return &id
}
