package importcsv

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/categorize"
	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/importer"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

const maxUploadSize = 10 << 20

type Handler struct {
	parser     *importer.Parser
	txSvc      *transaction.Service
	categories *categorize.Service
}

func NewHandler(parser *importer.Parser, txSvc *transaction.Service, categories *categorize.Service) *Handler {
	return &Handler{
		parser:     parser,
		txSvc:      txSvc,
		categories: categories,
	}
}

// Routes registers the upload under the transactions router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/import/csv", h.importCSV)
	r.With(middleware.AllowContentType("application/json")).Post("/import/csv/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID          uuid.UUID        `json:"id"`
	Amount      decimal.Decimal  `json:"amount"`
	Type        transaction.Type `json:"type"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Date        string           `json:"date"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

type rowDTO struct {
	Amount      decimal.Decimal `json:"amount" validate:"required,gte=0.01"`
	Type        string          `json:"type" validate:"required,oneof=income expense"`
	Description string          `json:"description" validate:"required,max=255"`
	Category    string          `json:"category" validate:"required,max=100"`
	Date        string          `json:"date" validate:"required,isodate"`
	Notes       string          `json:"notes,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO              `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	Transactions []rowDTO `json:"transactions" validate:"required,min=1,max=1000,dive"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respond.Invalid(w, validate.Field("file", "failed to parse form: "+err.Error()))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Invalid(w, validate.Field("file", "is required"))
		return
	}
	defer file.Close()

	rows, err := h.parser.Parse(file)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			respond.Invalid(w, err)
			return
		}

		respond.Internal(w, r, err)

		return
	}

	if len(rows) == 0 {
		respond.Invalid(w, validate.Field("file", "contains no transactions"))
		return
	}

	for i, p := range rows {
		if p.Category != "" {
			continue
		}

		rows[i].Category = importer.DefaultCategory

		suggested, err := h.categories.Suggest(r.Context(), userID, p.Description)
		if err != nil {
			slog.WarnContext(r.Context(), "category suggestion failed", "error", err)
			continue
		}

		if suggested != "" {
			rows[i].Category = suggested
		}
	}

	result, err := h.txSvc.ImportBatch(r.Context(), userID, rows)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			respond.Invalid(w, err)
			return
		}

		respond.Internal(w, r, err)

		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toRowDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		respond.JSON(w, http.StatusConflict, resp)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

// confirmImport stores reviewed rows without duplicate checks.
func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	batch := make([]transaction.CreateParams, 0, len(req.Transactions))
	for _, p := range req.Transactions {
		date, _ := validate.ParseDate(p.Date)

		batch = append(batch, transaction.CreateParams{
			Amount:      p.Amount,
			Type:        transaction.Type(p.Type),
			Description: p.Description,
			Category:    p.Category,
			Date:        date,
			Notes:       p.Notes,
			Tags:        p.Tags,
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), userID, batch)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			respond.Invalid(w, err)
			return
		}

		respond.Internal(w, r, err)

		return
	}

	respond.JSON(w, http.StatusCreated, toSuccessResponse(txs))
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.Format(time.DateOnly),
		CreatedAt:   tx.CreatedAt,
	}
}

func toRowDTO(p transaction.CreateParams) rowDTO {
	return rowDTO{
		Amount:      p.Amount,
		Type:        string(p.Type),
		Description: p.Description,
		Category:    p.Category,
		Date:        p.Date.Format(time.DateOnly),
		Notes:       p.Notes,
		Tags:        p.Tags,
	}
}
