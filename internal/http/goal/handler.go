package goal

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/goal"
	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Handler struct {
	svc *goal.Service
	now func() time.Time
}

func NewHandler(svc *goal.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	jsonBody := middleware.AllowContentType("application/json")

	r.Get("/", h.list)
	r.With(jsonBody).Post("/", h.create)
	r.Get("/stats", h.stats)
	r.Get("/{id}", h.get)
	r.With(jsonBody).Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.With(jsonBody).Put("/{id}/progress", h.progress)
}

type createGoalRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	TargetAmount  decimal.Decimal `json:"targetAmount" validate:"required,gte=0.01"`
	CurrentAmount decimal.Decimal `json:"currentAmount" validate:"gte=0"`
	TargetDate    string          `json:"targetDate" validate:"required,isodate"`
	Category      string          `json:"category" validate:"max=100"`
	Priority      string          `json:"priority" validate:"omitempty,oneof=low medium high"`
}

type updateGoalRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string          `json:"description"`
	TargetAmount  *decimal.Decimal `json:"targetAmount" validate:"omitempty,gte=0.01"`
	CurrentAmount *decimal.Decimal `json:"currentAmount" validate:"omitempty,gte=0"`
	TargetDate    *string          `json:"targetDate" validate:"omitempty,isodate"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	Priority      *string          `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status        *string          `json:"status" validate:"omitempty,oneof=active completed cancelled"`
}

type progressRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,gte=0"`
}

func (req updateGoalRequest) params() goal.UpdateParams {
	p := goal.UpdateParams{
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Category:      req.Category,
	}

	if req.TargetDate != nil {
		d, _ := validate.ParseDate(*req.TargetDate)
		p.TargetDate = &d
	}

	if req.Priority != nil {
		p.Priority = new(goal.Priority(*req.Priority))
	}

	if req.Status != nil {
		p.Status = new(goal.Status(*req.Status))
	}

	return p
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error

	switch {
	case errors.Is(err, goal.ErrNotFound):
		respond.NotFound(w, "goal")
	case errors.As(err, &verr):
		respond.Invalid(w, err)
	default:
		respond.Internal(w, r, err)
	}
}

func listFilter(r *http.Request) (goal.ListFilter, error) {
	q := r.URL.Query()
	f := goal.ListFilter{Category: params.String(r, "category")}

	if s := q.Get("status"); s != "" {
		st := goal.Status(s)
		if !st.Valid() {
			return f, validate.Field("status", "must be one of: active, completed, cancelled")
		}

		f.Status = &st
	}

	if s := q.Get("priority"); s != "" {
		p := goal.Priority(s)
		if !p.Valid() {
			return f, validate.Field("priority", "must be one of: low, medium, high")
		}

		f.Priority = &p
	}

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

	goals, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := h.now()

	resp := make([]goalResponse, len(goals))
	for i, g := range goals {
		resp[i] = toResponse(g, now)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req createGoalRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	target, _ := validate.ParseDate(req.TargetDate)

	g, err := h.svc.Create(r.Context(), userID, goal.CreateParams{
		Name:          req.Name,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    target,
		Category:      req.Category,
		Priority:      goal.Priority(req.Priority),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(g, h.now()))
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

	g, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(g, h.now()))
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

	var req updateGoalRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	g, err := h.svc.Update(r.Context(), userID, id, req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(g, h.now()))
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	id, err := params.ID(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	var req progressRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	g, err := h.svc.UpdateProgress(r.Context(), userID, id, *req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(g, h.now()))
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

	respond.Message(w, http.StatusOK, "goal deleted")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	s, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, statsResponse{
		TotalGoals:         s.Total,
		ActiveGoals:        s.Active,
		CompletedGoals:     s.Completed,
		CancelledGoals:     s.Cancelled,
		TotalTargetAmount:  s.TotalTargetAmount,
		TotalCurrentAmount: s.TotalCurrentAmount,
		OverallProgress:    s.OverallProgress,
	})
}
