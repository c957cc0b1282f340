// Frontdesk - AI front desk assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frontdeskai/frontdesk/internal/api"
	"github.com/frontdeskai/frontdesk/internal/config"
	"github.com/frontdeskai/frontdesk/internal/dispatch"
	"github.com/frontdeskai/frontdesk/internal/identity"
	"github.com/frontdeskai/frontdesk/internal/lead"
	"github.com/frontdeskai/frontdesk/internal/middleware"
	"github.com/frontdeskai/frontdesk/internal/oracle"
	"github.com/frontdeskai/frontdesk/internal/profile"
	"github.com/frontdeskai/frontdesk/internal/responder"
	"github.com/frontdeskai/frontdesk/internal/session"
	"github.com/frontdeskai/frontdesk/internal/store"
	"github.com/frontdeskai/frontdesk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	profiles := profile.NewStore(profile.NewFileLoader(cfg.ClientsDir))

	var completer oracle.Completer
	if cfg.Oracle.APIKey != "" {
		completer = oracle.NewOpenAI(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.Timeout)
		slog.Info("Oracle configured", "model", cfg.Oracle.Model)
	} else {
		slog.Warn("OPENAI_API_KEY not set, replies will use the fallback message")
	}
	answerer := responder.New(completer, logger)

	var transport dispatch.Transport
	if cfg.SMTPConfigured() {
		transport = dispatch.NewSMTPTransport(cfg.SMTP)
		slog.Info("SMTP transport configured", "host", cfg.SMTP.Host, "sender", cfg.SMTP.Sender)
	} else {
		transport = dispatch.NewLogTransport(logger)
		slog.Warn("SMTP not configured, lead notifications will only be logged")
	}
	dispatcher := dispatch.NewDispatcher(transport, cfg.Dispatch, logger)

	policy := lead.FieldPolicy{
		PhoneMinDigits: cfg.Lead.PhoneMinDigits,
		PhoneMaxDigits: cfg.Lead.PhoneMaxDigits,
	}
	machine := lead.NewMachine(nil, answerer, dispatcher, repo, policy, cfg.Lead.HistoryLimit, logger)

	registry := session.NewRegistry()

	handler := api.NewHandler(profiles, registry, machine, dispatcher, policy, repo, cfg)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(corsOrigins(cfg)))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	handler.RegisterRoutes(r)
	r.Get("/ws/chat", handler.HandleChatSocket)
	r.Handle("/*", web.WidgetHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.StartSweeper(ctx, cfg.SweepInterval, cfg.SessionTTL)

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
