// Package user serves registration, login and account management.
package user

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/finsight/internal/http/params"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/user"
	"github.com/MrJamesThe3rd/finsight/internal/validate"
)

// TokenIssuer signs a bearer token for a user.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

type Handler struct {
	users  *user.Service
	tokens TokenIssuer
}

func NewHandler(users *user.Service, tokens TokenIssuer) *Handler {
	return &Handler{users: users, tokens: tokens}
}

// AuthRoutes registers the /auth endpoints. authn guards the ones that need
// a signed-in caller.
func (h *Handler) AuthRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	jsonBody := middleware.AllowContentType("application/json")

	r.With(jsonBody).Post("/register", h.register)
	r.With(jsonBody).Post("/login", h.login)
	r.With(authn).Get("/me", h.me)
	r.With(authn).Post("/logout", h.logout)
}

// Routes registers the /users endpoints; the caller must be authenticated.
func (h *Handler) Routes(r chi.Router) {
	jsonBody := middleware.AllowContentType("application/json")

	r.With(jsonBody).Put("/profile", h.updateProfile)
	r.With(jsonBody).Put("/change-password", h.changePassword)
	r.Delete("/account", h.deleteAccount)
}

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,maxbytes=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error

	switch {
	case errors.Is(err, user.ErrNotFound):
		respond.NotFound(w, "user")
	case errors.Is(err, user.ErrEmailTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials), errors.Is(err, user.ErrInactive):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &verr):
		respond.Invalid(w, err)
	default:
		respond.Internal(w, r, err)
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, status int, u *user.User) {
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}

	respond.JSON(w, status, sessionResponse{User: toResponse(u), Token: token})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.session(w, r, http.StatusCreated, u)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.session(w, r, http.StatusOK, u)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, meResponse{User: toResponse(u)})
}

// logout is a no-op on the server; tokens are stateless and the client
// discards its copy.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	respond.Message(w, http.StatusOK, "logged out")
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), userID, user.ProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, meResponse{User: toResponse(u)})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	err := h.users.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, user.ErrInvalidCredentials) {
		respond.Invalid(w, validate.Field("currentPassword", "is incorrect"))
		return
	}

	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "password updated")
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := params.Caller(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}

	respond.Message(w, http.StatusOK, "account deleted")
}
