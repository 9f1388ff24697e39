package entities

import (
	"context"
	"errors"
	"time"

	"crm-access-engine/internal/domain/access"
)

var ErrNotFound = errors.New("entity not found")

type Repository interface {
	Create(ctx context.Context, e Entity) error
	GetByID(ctx context.Context, t access.EntityType, id string) (Entity, error)
	ListByPoolStatus(ctx context.Context, t access.EntityType, statuses ...PoolStatus) ([]Entity, error)

	// ClaimIfUnowned es la única escritura del claim: setea owner, claimed y
	// claimedAt solo si pool_status sigue en expected y owner sigue null.
	// ok=false => otro request ganó (0 filas afectadas).
	ClaimIfUnowned(ctx context.Context, t access.EntityType, id string, expected PoolStatus, ownerID string, at time.Time) (Entity, bool, error)

	// TransitionStatus cambia from -> to solo si el registro sigue sin dueño y en from.
	TransitionStatus(ctx context.Context, t access.EntityType, id string, from, to PoolStatus, at time.Time) (Entity, bool, error)
}
