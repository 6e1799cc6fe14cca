package budget

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/budget"
	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Handler struct {
	svc *budget.Service
}

func NewHandler(svc *budget.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	jsonBody := middleware.AllowContentType("application/json")

	r.Get("/", h.list)
	r.With(jsonBody).Post("/", h.create)
	r.Get("/{id}", h.get)
	r.With(jsonBody).Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createBudgetRequest struct {
	Category       string          `json:"category" validate:"required,max=100"`
	Amount         decimal.Decimal `json:"amount" validate:"required,gte=0.01"`
	Period         string          `json:"period" validate:"omitempty,oneof=weekly monthly yearly"`
	StartDate      *string         `json:"startDate" validate:"omitempty,isodate"`
	EndDate        *string         `json:"endDate" validate:"omitempty,isodate"`
	AlertThreshold *int            `json:"alertThreshold" validate:"omitempty,gte=0,lte=100"`
}

type updateBudgetRequest struct {
	Category       *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Amount         *decimal.Decimal `json:"amount" validate:"omitempty,gte=0.01"`
	Period         *string          `json:"period" validate:"omitempty,oneof=weekly monthly yearly"`
	StartDate      *string          `json:"startDate" validate:"omitempty,isodate"`
	EndDate        *string          `json:"endDate" validate:"omitempty,isodate"`
	ClearEndDate   bool             `json:"clearEndDate"`
	IsActive       *bool            `json:"isActive"`
	AlertThreshold *int             `json:"alertThreshold" validate:"omitempty,gte=0,lte=100"`
}

// date converts an already validated optional date.
func date(s *string) *time.Time {
	if s == nil {
		return nil
	}

	d, _ := validate.ParseDate(*s)

	return &d
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error

	switch {
	case errors.Is(err, budget.ErrNotFound):
		respond.NotFound(w, "budget")
	case errors.As(err, &verr):
		respond.Invalid(w, err)
	default:
		respond.Internal(w, r, err)
	}
}

func listFilter(r *http.Request) (budget.ListFilter, error) {
	f := budget.ListFilter{Category: params.String(r, "category")}

	if s := r.URL.Query().Get("period"); s != "" {
		p := budget.Period(s)
		if !p.Valid() {
			return f, validate.Field("period", "must be one of: weekly, monthly, yearly")
		}

		f.Period = &p
	}

	active, err := params.Bool(r, "isActive")
	if err != nil {
		return f, err
	}

	f.IsActive = active

	return f, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	filter, err := listFilter(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	tracked, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]budgetResponse, len(tracked))
	for i, t := range tracked {
		resp[i] = toResponse(t)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req createBudgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	t, err := h.svc.Create(r.Context(), userID, budget.CreateParams{
		Category:       req.Category,
		Amount:         req.Amount,
		Period:         budget.Period(req.Period),
		StartDate:      date(req.StartDate),
		EndDate:        date(req.EndDate),
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	id, err := params.ID(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	t, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	id, err := params.ID(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	var req updateBudgetRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	p := budget.UpdateParams{
		Category:       req.Category,
		Amount:         req.Amount,
		StartDate:      date(req.StartDate),
		EndDate:        date(req.EndDate),
		ClearEndDate:   req.ClearEndDate,
		IsActive:       req.IsActive,
		AlertThreshold: req.AlertThreshold,
	}

	if req.Period != nil {
		p.Period = new(budget.Period(*req.Period))
	}

	t, err := h.svc.Update(r.Context(), userID, id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	id, err := params.ID(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "budget deleted")
}
