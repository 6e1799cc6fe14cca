package transaction

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Handler struct {
	svc *transaction.Service
	now func() time.Time
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	jsonBody := middleware.AllowContentType("application/json")

	r.Get("/", h.list)
	r.With(jsonBody).Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/monthly", h.monthly)
	r.Get("/categories", h.categories)
	r.With(jsonBody).Post("/import", h.importJSON)
	r.Get("/{id}", h.get)
	r.With(jsonBody).Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gte=0.01"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Description string          `json:"description" validate:"required,max=255"`
	Category    string          `json:"category" validate:"required,max=100"`
	Date        string          `json:"date" validate:"omitempty,isodate"`
	Notes       string          `json:"notes"`
	Tags        []string        `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

func (req createTransactionRequest) params() transaction.CreateParams {
	p := transaction.CreateParams{
		Amount:      req.Amount,
		Type:        transaction.Type(req.Type),
		Description: req.Description,
		Category:    req.Category,
		Notes:       req.Notes,
		Tags:        req.Tags,
	}

	if req.Date != "" {
		// Already checked by the isodate tag.
		p.Date, _ = validate.ParseDate(req.Date)
	}

	return p
}

type updateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"omitempty,gte=0.01"`
	Type        *string          `json:"type" validate:"omitempty,oneof=income expense"`
	Description *string          `json:"description" validate:"omitempty,min=1,max=255"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	Date        *string          `json:"date" validate:"omitempty,isodate"`
	Notes       *string          `json:"notes"`
	Tags        []string         `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

func (req updateTransactionRequest) params() transaction.UpdateParams {
	p := transaction.UpdateParams{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Notes:       req.Notes,
		Tags:        req.Tags,
	}

	if req.Type != nil {
		p.Type = new(transaction.Type(*req.Type))
	}

	if req.Date != nil {
		d, _ := validate.ParseDate(*req.Date)
		p.Date = &d
	}

	return p
}

type importRequest struct {
	Transactions []createTransactionRequest `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error

	switch {
	case errors.Is(err, transaction.ErrNotFound):
		respond.NotFound(w, "transaction")
	case errors.As(err, &verr):
		respond.Invalid(w, err)
	default:
		respond.Internal(w, r, err)
	}
}

func dateRange(r *http.Request) (transaction.DateRange, error) {
	start, err := params.Date(r, "startDate")
	if err != nil {
		return transaction.DateRange{}, err
	}

	end, err := params.Date(r, "endDate")
	if err != nil {
		return transaction.DateRange{}, err
	}

	return transaction.DateRange{Start: start, End: end}, nil
}

func typeParam(r *http.Request) (*transaction.Type, error) {
	s := r.URL.Query().Get("type")
	if s == "" {
		return nil, nil
	}

	t, ok := transaction.ParseType(s)
	if !ok {
		return nil, validate.Field("type", "must be one of: income, expense")
	}

	return &t, nil
}

func listFilter(r *http.Request) (transaction.ListFilter, error) {
	var (
		f   transaction.ListFilter
		err error
	)

	if f.Page, err = params.Int(r, "page", 1); err != nil {
		return f, err
	}

	if f.Limit, err = params.Int(r, "limit", transaction.DefaultPageSize); err != nil {
		return f, err
	}

	if f.Range, err = dateRange(r); err != nil {
		return f, err
	}

	if f.Type, err = typeParam(r); err != nil {
		return f, err
	}

	f.Category = params.String(r, "category")

	if s := r.URL.Query().Get("sort"); s != "" {
		f.Sort = transaction.SortField(s)
		if !f.Sort.Valid() {
			return f, validate.Field("sort", "must be one of: date, amount, category, description, type, createdAt")
		}
	}

	switch r.URL.Query().Get("order") {
	case "", "desc", "DESC":
		f.Desc = true
	case "asc", "ASC":
		f.Desc = false
	default:
		return f, validate.Field("order", "must be one of: asc, desc")
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

	page, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, pageResponse{
		Transactions: toResponseList(page.Transactions),
		TotalCount:   page.TotalCount,
		TotalPages:   page.TotalPages,
		CurrentPage:  page.CurrentPage,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	tx, err := h.svc.Create(r.Context(), userID, req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tx))
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

	tx, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
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

	var req updateTransactionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	tx, err := h.svc.Update(r.Context(), userID, id, req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tx))
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

	respond.Message(w, http.StatusOK, "transaction deleted")
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	rng, err := dateRange(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	s, err := h.svc.Summary(r.Context(), userID, rng)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, summaryResponse{
		TotalIncome:   s.TotalIncome,
		TotalExpenses: s.TotalExpenses,
		Balance:       s.Balance,
	})
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	year, err := params.Int(r, "year", h.now().Year())
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	trend, err := h.svc.MonthlyTrend(r.Context(), userID, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]monthlyResponse, len(trend))
	for i, m := range trend {
		resp[i] = monthlyResponse{Month: m.Month, Income: m.Income, Expense: m.Expense, Balance: m.Balance}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	rng, err := dateRange(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	typ, err := typeParam(r)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	totals, err := h.svc.CategoryBreakdown(r.Context(), userID, transaction.CategoryFilter{Range: rng, Type: typ})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(totals))
	for i, c := range totals {
		resp[i] = categoryResponse{Category: c.Category, Total: c.Total, Count: c.Count}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) importJSON(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req importRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	batch := make([]transaction.CreateParams, len(req.Transactions))
	for i, t := range req.Transactions {
		batch[i] = t.params()
	}

	txs, err := h.svc.CreateBatch(r.Context(), userID, batch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		Message:      fmt.Sprintf("%d transactions imported", len(txs)),
		Imported:     len(txs),
		Transactions: toResponseList(txs),
	})
}
