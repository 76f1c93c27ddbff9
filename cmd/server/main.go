package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
	"github.com/matatunos/shareaudit/pkg/shareaudit/api"
	"github.com/matatunos/shareaudit/pkg/shareaudit/csrftoken"
	memoryrepo "github.com/matatunos/shareaudit/pkg/shareaudit/repo/memory"
	postgresrepo "github.com/matatunos/shareaudit/pkg/shareaudit/repo/postgres"
)

type Config struct {
	Port         string `env:"PORT" env-default:"8080"`
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"` // memory, postgres
	DB           DbConfig
	JWTSecret    string `env:"JWT_SECRET" env-default:"dev-secret"`
	CSRFSecret   string `env:"CSRF_SECRET" env-default:"dev-csrf-secret"`
}

type DbConfig struct {
	Port     uint16 `env:"AUDIT_PG_PORT" env-default:"5432"`
	Host     string `env:"AUDIT_PG_HOST" env-default:"localhost"`
	Name     string `env:"AUDIT_PG_NAME" env-default:"shareaudit_db"`
	User     string `env:"AUDIT_PG_USER" env-default:"shareaudit"`
	Password string `env:"AUDIT_PG_PASSWORD" env-default:"pwd"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func NewDbPool(ctx context.Context, dbConfig DbConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbConfig.toDatabaseUrl())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func buildRepository(ctx context.Context, config Config) (shareaudit.Repository, error) {
	switch config.DatabaseType {
	case "postgres":
		pool, err := NewDbPool(ctx, config.DB)
		if err != nil {
			return nil, err
		}
		return postgresrepo.NewWithPool(pool), nil
	case "memory":
		return memoryrepo.New(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", config.DatabaseType)
	}
}

func main() {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo, err := buildRepository(ctx, config)
	if err != nil {
		slog.Error("Failed to initialize repository", "err", err)
		os.Exit(1)
	}

	svc, err := shareaudit.New(
		shareaudit.WithRepository(repo),
		shareaudit.WithDiagnosticSink(shareaudit.NewSlogDiagnosticSink(slog.Default())),
	)
	if err != nil {
		slog.Error("Failed to create service", "err", err)
		os.Exit(1)
	}

	csrf := csrftoken.NewValidator([]byte(config.CSRFSecret))
	tokenAuth := jwtauth.New("HS256", []byte(config.JWTSecret), nil)

	auditHandler := api.NewAuditHandler(svc)
	metricsHandler := api.NewMetricsHandler(svc)
	exportHandler := api.NewExportHandler(svc)
	adminHandler := api.NewAdminHandler(svc, csrf)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(api.SessionLoader)

		r.Mount("/api/downloads", auditHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(api.AdminOnly)
			r.Mount("/api/metrics", metricsHandler.Routes())
			r.Mount("/api/export", exportHandler.Routes())
			r.Mount("/api/admin", adminHandler.Routes())
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Server starting", "port", config.Port, "database", config.DatabaseType)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
