package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/finsight/internal/http/budget"
	"github.com/MrJamesThe3rd/finsight/internal/http/category"
	"github.com/MrJamesThe3rd/finsight/internal/http/export"
	"github.com/MrJamesThe3rd/finsight/internal/http/goal"
	"github.com/MrJamesThe3rd/finsight/internal/http/importcsv"
	"github.com/MrJamesThe3rd/finsight/internal/http/respond"
	"github.com/MrJamesThe3rd/finsight/internal/http/transaction"
	"github.com/MrJamesThe3rd/finsight/internal/http/user"
)

type Handlers struct {
	Users        *user.Handler
	Transactions *transaction.Handler
	Import       *importcsv.Handler
	Export       *export.Handler
	Goals        *goal.Handler
	Budgets      *budget.Handler
	Categories   *category.Handler
}

type Options struct {
	AllowedOrigins []string
	// Detail exposes internal error text in 500 responses.
	Detail bool
	// Authenticate guards every route except health, register and login.
	Authenticate func(http.Handler) http.Handler
	// Ping reports database health; nil skips the check.
	Ping func(ctx context.Context) error
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(respond.Detail(opts.Detail))

	router.Get("/health", health(opts.Ping))

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			h.Users.AuthRoutes(r, opts.Authenticate)
		})

		r.Group(func(r chi.Router) {
			r.Use(opts.Authenticate)

			r.Route("/users", h.Users.Routes)

			r.Route("/transactions", func(r chi.Router) {
				h.Import.Routes(r)
				h.Export.Routes(r)
				h.Transactions.Routes(r)
			})

			r.Route("/goals", h.Goals.Routes)
			r.Route("/budgets", h.Budgets.Routes)
			r.Route("/categories", h.Categories.Routes)
		})
	})

	return router
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := ping(ctx); err != nil {
				respond.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Timestamp: time.Now().UTC()})
				return
			}
		}

		respond.JSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
	}
}
