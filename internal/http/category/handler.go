// Package category serves category suggestions and the rules behind them.
package category

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/categorize"
	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Handler struct {
	svc *categorize.Service
}

func NewHandler(svc *categorize.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Get("/rules", h.listRules)
	r.With(middleware.AllowContentType("application/json")).Post("/rules", h.learn)
	r.Delete("/rules/{id}", h.forget)
}

type ruleRequest struct {
	Pattern  string `json:"pattern" validate:"required,max=255"`
	Category string `json:"category" validate:"required,max=100"`
}

type ruleResponse struct {
	ID        uuid.UUID `json:"id"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(rule *categorize.Rule) ruleResponse {
	return ruleResponse{
		ID:        rule.ID,
		Pattern:   rule.Pattern,
		Category:  rule.Category,
		CreatedAt: rule.CreatedAt,
	}
}

type suggestResponse struct {
	Category *string `json:"category"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error

	switch {
	case errors.Is(err, categorize.ErrNotFound):
		respond.NotFound(w, "rule")
	case errors.As(err, &verr):
		respond.Invalid(w, err)
	default:
		respond.Internal(w, r, err)
	}
}

// suggest answers {"category": null} when no rule matches.
func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	desc := r.URL.Query().Get("description")
	if desc == "" {
		respond.Invalid(w, validate.Field("description", "is required"))
		return
	}

	category, err := h.svc.Suggest(r.Context(), userID, desc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var resp suggestResponse
	if category != "" {
		resp.Category = &category
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	rules, err := h.svc.Rules(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = toResponse(rule)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req ruleRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	rule, err := h.svc.Learn(r.Context(), userID, req.Pattern, req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(rule))
}

func (h *Handler) forget(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	id, err := params.ID(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	if err := h.svc.Forget(r.Context(), userID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "rule deleted")
}
