package authz

import (
	"encoding/json"
	"errors"
	"net/http"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/access/test", testAccessHandler(svc))
}

type testAccessRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	UserID     string `json:"user_id"`
}

// testAccessHandler godoc
// @Summary Probar acceso
// @Description Evalúa política estática + reglas para (entity_type, entity_id, user_id). Solo deja rastro en el audit log.
// @Tags access
// @Accept json
// @Produce json
// @Param payload body testAccessRequest true "Consulta"
// @Success 200 {object} Decision
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /access/test [post]
func testAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req testAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		et, ok := access.ParseEntityType(req.EntityType)
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}
		userID := req.UserID
		if userID == "" {
			userID = caller.UserID
		}

		d, err := svc.Test(r.Context(), caller, et, req.EntityID, userID)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		respond.JSON(w, http.StatusOK, d)
	}
}
