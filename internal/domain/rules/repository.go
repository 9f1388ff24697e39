package rules

import (
	"context"

	"crm-access-engine/internal/domain/access"
)

type Repository interface {
	Create(ctx context.Context, r Rule) error
	Update(ctx context.Context, r Rule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Rule, error)
	List(ctx context.Context) ([]Rule, error)

	// ListActive devuelve reglas activas del subject type, ordenadas por
	// prioridad desc (el motor reordena igual, no confía en el repo).
	ListActive(ctx context.Context, subject access.EntityType) ([]Rule, error)
}
