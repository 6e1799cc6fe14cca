// Package params reads path and query parameters shared by the handlers.
package params

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/auth"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

// Caller returns the authenticated user id, writing a 401 when the request
// did not pass through the auth middleware.
func Caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		respond.Unauthorized(w)
		return uuid.Nil, false
	}

	return id, true
}

// ID parses the {id} path parameter.
func ID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, validate.Field("id", "must be a valid UUID")
	}

	return id, nil
}

// Date parses an optional date query parameter.
func Date(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := validate.ParseDate(s)
	if err != nil {
		return nil, validate.Field(name, "must be a valid date")
	}

	return &t, nil
}

// Int parses an optional integer query parameter, returning def when absent.
func Int(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, validate.Field(name, "must be an integer")
	}

	return n, nil
}

// Bool parses an optional boolean query parameter.
func Bool(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, validate.Field(name, "must be true or false")
	}

	return &b, nil
}

// String returns a pointer to a non-empty query parameter.
func String(r *http.Request, name string) *string {
	if s := r.URL.Query().Get(name); s != "" {
		return &s
	}

	return nil
}
