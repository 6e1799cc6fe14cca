package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
)

// Verifier checks a bearer token and returns its subject.
type Verifier interface {
	Verify(raw string) (uuid.UUID, error)
}

// ActiveChecker reports whether a user exists and may use the API.
type ActiveChecker interface {
	Active(ctx context.Context, id uuid.UUID) (bool, error)
}

// Middleware rejects requests without a valid bearer token for an active user
// and stores the caller id in the request context.
func Middleware(tokens Verifier, users ActiveChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				respond.Unauthorized(w)
				return
			}

			id, err := tokens.Verify(raw)
			if errors.Is(err, ErrTokenExpired) {
				respond.ErrorCode(w, http.StatusUnauthorized, "token_expired", "token expired")
				return
			}

			if err != nil {
				respond.Unauthorized(w)
				return
			}

			active, err := users.Active(r.Context(), id)
			if err != nil {
				respond.Internal(w, r, err)
				return
			}

			if !active {
				respond.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
