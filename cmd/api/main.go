package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/finsight/internal/auth"
	"github.com/MrJamesThe3rd/finsight/internal/budget"
	budgetStore "github.com/MrJamesThe3rd/finsight/internal/budget/store"
	"github.com/MrJamesThe3rd/finsight/internal/categorize"
	categorizeStore "github.com/MrJamesThe3rd/finsight/internal/categorize/store"
	"github.com/MrJamesThe3rd/finsight/internal/config"
	"github.com/MrJamesThe3rd/finsight/internal/database"
	"github.com/MrJamesThe3rd/finsight/internal/export"
	"github.com/MrJamesThe3rd/finsight/internal/goal"
	goalStore "github.com/MrJamesThe3rd/finsight/internal/goal/store"
	finsightHttp "github.com/MrJamesThe3rd/finsight/internal/http"
	budgetHandler "github.com/MrJamesThe3rd/finsight/internal/http/budget"
	categoryHandler "github.com/MrJamesThe3rd/finsight/internal/http/category"
	exportHandler "github.com/MrJamesThe3rd/finsight/internal/http/export"
	goalHandler "github.com/MrJamesThe3rd/finsight/internal/http/goal"
	importHandler "github.com/MrJamesThe3rd/finsight/internal/http/importcsv"
	txHandler "github.com/MrJamesThe3rd/finsight/internal/http/transaction"
	userHandler "github.com/MrJamesThe3rd/finsight/internal/http/user"
	"github.com/MrJamesThe3rd/finsight/internal/importer"
	"github.com/MrJamesThe3rd/finsight/internal/transaction"
	txStore "github.com/MrJamesThe3rd/finsight/internal/transaction/store"
	"github.com/MrJamesThe3rd/finsight/internal/user"
	userStore "github.com/MrJamesThe3rd/finsight/internal/user/store"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	slog.SetDefault(slog.New(handler).With("app", cfg.App.Name, "env", cfg.App.Env))
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	transactions := txStore.New(db)

	var (
		tokens             = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
		userService        = user.NewService(userStore.New(db), auth.NewHasher(cfg.Auth.BcryptCost))
		transactionService = transaction.NewService(transactions)
		goalService        = goal.NewService(goalStore.New(db))
		budgetService      = budget.NewService(budgetStore.New(db), transactions)
		categorizeService  = categorize.NewService(categorizeStore.New(db))
		exportService      = export.NewService(transactionService)
		parser             = importer.NewParser()
	)

	handlers := finsightHttp.Handlers{
		Users:        userHandler.NewHandler(userService, tokens),
		Transactions: txHandler.NewHandler(transactionService),
		Import:       importHandler.NewHandler(parser, transactionService, categorizeService),
		Export:       exportHandler.NewHandler(exportService),
		Goals:        goalHandler.NewHandler(goalService),
		Budgets:      budgetHandler.NewHandler(budgetService),
		Categories:   categoryHandler.NewHandler(categorizeService),
	}

	router := finsightHttp.New(handlers, finsightHttp.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Detail:         !cfg.Production(),
		Authenticate:   auth.Middleware(tokens, userService),
		Ping:           db.PingContext,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return <-errCh
}
