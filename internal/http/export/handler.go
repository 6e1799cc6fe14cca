package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/finsight/internal/export"
	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Routes registers the download under the transactions router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/export", h.download)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	start, err := params.Date(r, "startDate")
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	end, err := params.Date(r, "endDate")
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	// Buffered so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), &buf, userID, format, transaction.DateRange{Start: start, End: end}); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			respond.Invalid(w, err)
			return
		}

		respond.Internal(w, r, err)

		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(h.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	_, _ = buf.WriteTo(w)
}
