package audit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, l *Log) {
	r.Get("/audit", listAuditHandler(l))
}

type entryResponse struct {
	ID         string         `json:"id"`
	RuleID     *string        `json:"rule_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     string         `json:"user_id"`
	Action     Action         `json:"action"`
	Details    map[string]any `json:"details"`
	Timestamp  time.Time      `json:"timestamp"`
}

// listAuditHandler godoc
// @Summary Audit trail de una entidad
// @Description Devuelve las entradas más recientes primero. Solo admin.
// @Tags audit
// @Produce json
// @Param entity_type query string true "lead | contact | task | appointment | rule"
// @Param entity_id query string true "ID de la entidad"
// @Param limit query int false "máximo de entradas (default 100)"
// @Success 200 {array} entryResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /audit [get]
func listAuditHandler(l *Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if actor.Role != access.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		q := r.URL.Query()
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		items, err := l.ListByEntity(r.Context(), q.Get("entity_type"), q.Get("entity_id"), limit)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "entity_type and entity_id are required", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]entryResponse, 0, len(items))
		for _, e := range items {
			out = append(out, entryResponse{
				ID:         e.ID,
				RuleID:     e.RuleID,
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
				UserID:     e.UserID,
				Action:     e.Action,
				Details:    e.Details,
				Timestamp:  e.Timestamp,
			})
		}
		respond.JSON(w, http.StatusOK, out)
	}
}
