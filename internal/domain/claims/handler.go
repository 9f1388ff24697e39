package claims

import (
	"errors"
	"net/http"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/domain/entities"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, c *Coordinator) {
	r.Route("/pool", func(pr chi.Router) {
		pr.Get("/available", listAvailableHandler(c))
		pr.Post("/{entityType}/{entityID}/claim", claimHandler(c))
	})
}

type claimErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// claimHandler godoc
// @Summary Tomar una entidad del pool
// @Description Asigna el lead/contact al usuario del token si la política lo permite. Dos claims concurrentes: uno gana, el otro recibe 409.
// @Tags pool
// @Produce json
// @Param entityType path string true "lead | contact"
// @Param entityID path string true "ID"
// @Success 200 {object} entities.Response
// @Failure 403 {object} claimErrorResponse "not eligible"
// @Failure 404 {string} string "not found"
// @Failure 409 {object} claimErrorResponse "already claimed / race lost"
// @Router /pool/{entityType}/{entityID}/claim [post]
func claimHandler(c *Coordinator) http.HandlerFunc {
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

		e, err := c.Claim(r.Context(), actor, et, chi.URLParam(r, "entityID"))
		if err != nil {
			writeClaimError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, entities.ToResponse(e))
	}
}

// listAvailableHandler godoc
// @Summary Pool disponible
// @Description Entidades sin dueño que el usuario puede ver hoy (SDR: todo lo open; health coach: leads pasado el umbral o liberados).
// @Tags pool
// @Produce json
// @Success 200 {array} entities.Response
// @Failure 401 {string} string "unauthorized"
// @Router /pool/available [get]
func listAvailableHandler(c *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := c.ListAvailable(r.Context(), actor)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entities.Response, 0, len(items))
		for _, e := range items {
			out = append(out, entities.ToResponse(e))
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

func writeClaimError(w http.ResponseWriter, err error) {
	var ne *NotEligibleError
	switch {
	case errors.As(err, &ne):
		respond.JSON(w, http.StatusForbidden, claimErrorResponse{Error: "not_eligible", Reason: ne.Reason})
	case errors.Is(err, ErrAlreadyClaimed):
		respond.JSON(w, http.StatusConflict, claimErrorResponse{Error: "already_claimed", Reason: err.Error()})
	case errors.Is(err, ErrRaceLost):
		respond.JSON(w, http.StatusConflict, claimErrorResponse{Error: "race_lost", Reason: err.Error()})
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
