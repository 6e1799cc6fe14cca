// Package respond writes JSON bodies and the uniform error envelope used by
// every handler.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

type errorBody struct {
	Error  string                `json:"error"`
	Code   string                `json:"code,omitempty"`
	Fields []validate.FieldError `json:"fields,omitempty"`
	Detail string                `json:"detail,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Message writes a {"message": msg} body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

func ErrorCode(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, errorBody{Error: msg, Code: code})
}

// Invalid writes a 400 with field level messages when err carries them.
func Invalid(w http.ResponseWriter, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
		return
	}

	JSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}

func NotFound(w http.ResponseWriter, resource string) {
	Error(w, http.StatusNotFound, resource+" not found")
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "unauthorized")
}

// Internal logs err and writes a generic 500. The error text is included only
// when the request context carries detail mode.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)

	body := errorBody{Error: "internal error"}
	if detailEnabled(r.Context()) {
		body.Detail = err.Error()
	}

	JSON(w, http.StatusInternalServerError, body)
}

type detailKey struct{}

// Detail returns middleware that controls whether Internal exposes error text.
func Detail(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), detailKey{}, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detailEnabled(ctx context.Context) bool {
	enabled, _ := ctx.Value(detailKey{}).(bool)
	return enabled
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return validate.Field("body", "malformed JSON: "+err.Error())
	}

	return validate.Struct(dst)
}
