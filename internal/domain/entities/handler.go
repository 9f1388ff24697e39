package entities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

// ReadGate decide si el actor puede leer la entidad (política estática + reglas).
// authz.Service lo implementa; se inyecta para no crear ciclo de imports.
type ReadGate interface {
	CanRead(ctx context.Context, actor access.Actor, e Entity) (bool, error)
}

func RegisterRoutes(r chi.Router, svc *Service, gate ReadGate) {
	r.Route("/entities", func(er chi.Router) {
		er.Post("/{entityType}", createEntityHandler(svc))
		er.Get("/{entityType}/{entityID}", getEntityHandler(svc, gate))

		// Solo leads: open -> available_to_health_coaches (admin)
		er.Post("/lead/{entityID}/release", releaseLeadHandler(svc))
	})
}

type createEntityRequest struct {
	OwnerID       *string        `json:"owner_id"`
	PoolEnteredAt *time.Time     `json:"pool_entered_at"`
	Fields        map[string]any `json:"fields"`
}

type Response struct {
	ID            string            `json:"id"`
	Type          access.EntityType `json:"type"`
	OwnerID       *string           `json:"owner_id"`
	PoolStatus    PoolStatus        `json:"pool_status,omitempty"`
	PoolEnteredAt *time.Time        `json:"pool_entered_at,omitempty"`
	ClaimedAt     *time.Time        `json:"claimed_at,omitempty"`
	Fields        map[string]any    `json:"fields"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// createEntityHandler godoc
// @Summary Crear entidad
// @Description Crea un lead/contact/task/appointment. Lead y contact sin owner entran al pool como `open`.
// @Tags entities
// @Accept json
// @Produce json
// @Param entityType path string true "lead | contact | task | appointment"
// @Param payload body createEntityRequest true "Entidad"
// @Success 201 {object} Response
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /entities/{entityType} [post]
func createEntityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		et, ok := access.ParseEntityType(chi.URLParam(r, "entityType"))
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}

		var req createEntityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		e, err := svc.Create(r.Context(), actor, CreateInput{
			Type:          et,
			OwnerID:       req.OwnerID,
			Fields:        req.Fields,
			PoolEnteredAt: req.PoolEnteredAt,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, ToResponse(e))
	}
}

// getEntityHandler godoc
// @Summary Ver entidad
// @Description Devuelve la entidad si la decisión combinada (política estática + reglas) da read.
// @Tags entities
// @Produce json
// @Param entityType path string true "lead | contact | task | appointment"
// @Param entityID path string true "ID"
// @Success 200 {object} Response
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /entities/{entityType}/{entityID} [get]
func getEntityHandler(svc *Service, gate ReadGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		et, ok := access.ParseEntityType(chi.URLParam(r, "entityType"))
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}

		e, err := svc.Get(r.Context(), et, chi.URLParam(r, "entityID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		allowed, err := gate.CanRead(r.Context(), actor, e)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		respond.JSON(w, http.StatusOK, ToResponse(e))
	}
}

// releaseLeadHandler godoc
// @Summary Liberar lead a health coaches
// @Description Transición open -> available_to_health_coaches. Solo admin.
// @Tags entities
// @Produce json
// @Param entityID path string true "ID del lead"
// @Success 200 {object} Response
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Failure 409 {string} string "entity is not open for release"
// @Router /entities/lead/{entityID}/release [post]
func releaseLeadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		e, err := svc.ReleaseToHealthCoaches(r.Context(), actor, chi.URLParam(r, "entityID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, ToResponse(e))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrNotReleasable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ToResponse se exporta porque claims devuelve la entidad actualizada con el mismo shape.
func ToResponse(e Entity) Response {
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return Response{
		ID:            e.ID,
		Type:          e.Type,
		OwnerID:       e.OwnerID,
		PoolStatus:    e.PoolStatus,
		PoolEnteredAt: e.PoolEnteredAt,
		ClaimedAt:     e.ClaimedAt,
		Fields:        fields,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
