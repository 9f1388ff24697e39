package rules

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"crm-access-engine/internal/domain/access"
	"crm-access-engine/internal/middleware"
	"crm-access-engine/internal/platform/respond"

	"github.com/go-chi/chi/v5"
)

// PermissionManageRules habilita la API de reglas a no-admins.
const PermissionManageRules = "rules:manage"

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/rules", func(rr chi.Router) {
		rr.Get("/", listRulesHandler(svc))
		rr.Post("/", createRuleHandler(svc))

		// Tabla campo/operador por subject type (para el editor de reglas)
		rr.Get("/fields", listFieldsHandler())

		rr.Get("/{ruleID}", getRuleHandler(svc))
		rr.Patch("/{ruleID}", updateRuleHandler(svc))
		rr.Delete("/{ruleID}", deleteRuleHandler(svc))
	})
}

// CanManage: admin o permiso explícito del identity provider.
func CanManage(a access.Actor) bool {
	return a.Role == access.RoleAdmin || a.HasPermission(PermissionManageRules)
}

type ruleRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    *bool     `json:"is_active"`
	Priority    int       `json:"priority"`
	SubjectType string    `json:"subject_type"`
	Condition   Condition `json:"condition"`
	Action      Action    `json:"action"`
}

type rulePatchRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	IsActive    *bool      `json:"is_active"`
	Priority    *int       `json:"priority"`
	SubjectType *string    `json:"subject_type"`
	Condition   *Condition `json:"condition"`
	Action      *Action    `json:"action"`
}

type ruleResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	Priority    int               `json:"priority"`
	SubjectType access.EntityType `json:"subject_type"`
	Condition   Condition         `json:"condition"`
	Action      Action            `json:"action"`
	CreatedBy   string            `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type fieldsResponse struct {
	SubjectType access.EntityType `json:"subject_type"`
	Fields      []fieldResponse   `json:"fields"`
}

type fieldResponse struct {
	Name      string     `json:"name"`
	Type      FieldType  `json:"type"`
	Operators []Operator `json:"operators"`
	Options   []string   `json:"options,omitempty"`
}

// listRulesHandler godoc
// @Summary Listar reglas
// @Description Devuelve todas las reglas (activas e inactivas) ordenadas por prioridad. Requiere rol admin o permiso `rules:manage`.
// @Tags rules
// @Produce json
// @Success 200 {array} ruleResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /rules [get]
func listRulesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !CanManage(actor) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]ruleResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toRuleResponse(it))
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

// createRuleHandler godoc
// @Summary Crear regla
// @Description Crea una regla condición -> acción. La condición se valida contra la tabla de campos del subject type.
// @Tags rules
// @Accept json
// @Produce json
// @Param payload body ruleRequest true "Regla"
// @Success 201 {object} ruleResponse
// @Failure 400 {string} string "validation error"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /rules [post]
func createRuleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !CanManage(actor) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req ruleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rule, err := svc.Create(r.Context(), actor, CreateInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
			Priority:    req.Priority,
			SubjectType: access.EntityType(req.SubjectType),
			Condition:   req.Condition,
			Action:      req.Action,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		respond.JSON(w, http.StatusCreated, toRuleResponse(rule))
	}
}

func getRuleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !CanManage(actor) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		rule, err := svc.Get(r.Context(), chi.URLParam(r, "ruleID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRuleResponse(rule))
	}
}

// updateRuleHandler godoc
// @Summary Actualizar regla (PATCH)
// @Description Actualización parcial. El resultado del merge se valida completo.
// @Tags rules
// @Accept json
// @Produce json
// @Param ruleID path string true "ID de la regla"
// @Param payload body rulePatchRequest true "Campos a cambiar"
// @Success 200 {object} ruleResponse
// @Failure 400 {string} string "validation error"
// @Failure 404 {string} string "not found"
// @Router /rules/{ruleID} [patch]
func updateRuleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !CanManage(actor) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req rulePatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
			Priority:    req.Priority,
			Condition:   req.Condition,
			Action:      req.Action,
		}
		if req.SubjectType != nil {
			st := access.EntityType(*req.SubjectType)
			in.SubjectType = &st
		}

		rule, err := svc.Update(r.Context(), actor, chi.URLParam(r, "ruleID"), in)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, toRuleResponse(rule))
	}
}

// deleteRuleHandler godoc
// @Summary Borrar regla
// @Description Borra la regla; si ya fue referenciada por el audit log queda desactivada (is_active=false).
// @Tags rules
// @Produce json
// @Param ruleID path string true "ID de la regla"
// @Success 200 {object} map[string]string
// @Failure 404 {string} string "not found"
// @Router /rules/{ruleID} [delete]
func deleteRuleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.GetActor(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !CanManage(actor) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		ruleID := chi.URLParam(r, "ruleID")
		outcome, err := svc.Delete(r.Context(), actor, ruleID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{
			"id":      ruleID,
			"outcome": string(outcome),
		})
	}
}

func listFieldsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetActor(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		out := make([]fieldsResponse, 0, len(access.AllEntityTypes))
		for _, et := range access.AllEntityTypes {
			defs := Fields(et)
			fr := make([]fieldResponse, 0, len(defs))
			for _, d := range defs {
				fr = append(fr, fieldResponse{
					Name:      d.Name,
					Type:      d.Type,
					Operators: d.Operators(),
					Options:   d.Options,
				})
			}
			out = append(out, fieldsResponse{SubjectType: et, Fields: fr})
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toRuleResponse(r Rule) ruleResponse {
	return ruleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		Priority:    r.Priority,
		SubjectType: r.SubjectType,
		Condition:   r.Condition,
		Action:      r.Action,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
