package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/teamroster/internal/api"
	"github.com/nikhilbhutani/teamroster/internal/audit"
	"github.com/nikhilbhutani/teamroster/internal/cache"
	"github.com/nikhilbhutani/teamroster/internal/config"
	"github.com/nikhilbhutani/teamroster/internal/database"
	"github.com/nikhilbhutani/teamroster/internal/directory"
	"github.com/nikhilbhutani/teamroster/internal/identity"
	"github.com/nikhilbhutani/teamroster/internal/invitation"
	"github.com/nikhilbhutani/teamroster/internal/membership"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/queue"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("incomplete configuration", "error", err)
	}

	ctx := context.Background()

	// Database connection (optional, in-memory backends otherwise)
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, running with in-memory membership store", "error", err)
	} else {
		defer db.Close()

		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			slog.Warn("migrations failed", "error", err)
		}
	}

	// Redis connection (optional)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisUp := true
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without identity cache", "error", err)
		redisUp = false
	}
	defer rdb.Close()

	sender, closeSender := newSender(cfg)
	defer closeSender()

	svc := buildServices(db, rdb, redisUp, cfg, sender)

	router := api.NewRouter(db, rdb, cfg, svc)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "notify_backend", cfg.Notify.Backend, "database", db != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func buildServices(db *pgxpool.Pool, rdb *redis.Client, redisUp bool, cfg *config.Config, sender notify.Sender) api.Services {
	auditSvc := audit.NewService(db)

	if db == nil {
		tenants := tenant.NewMemoryRegistry()
		idents := identity.NewMemoryDirectory()
		store := membership.NewMemoryStore(membership.WithContactResolver(idents.ResolveContact))
		return api.Services{
			Workflow:  invitation.NewWorkflow(store, tenants, idents, sender, auditSvc, cfg.Notify.AcceptBaseURL),
			Roster:    directory.NewAssembler(nil, tenants, store, idents),
			Companies: tenants,
			Audit:     auditSvc,
		}
	}

	companies := tenant.NewService(db)
	store := membership.NewPostgresStore(db)
	var tenants tenant.Registry = companies
	var idents identity.Directory = identity.NewPostgresDirectory(db)
	if redisUp {
		c := cache.NewCache(rdb, "teamroster:")
		tenants = tenant.NewCachedRegistry(companies, c, cfg.Directory.CacheTTL)
		idents = identity.NewCachedDirectory(idents, c, cfg.Directory.CacheTTL)
	}

	return api.Services{
		Workflow:  invitation.NewWorkflow(store, tenants, idents, sender, auditSvc, cfg.Notify.AcceptBaseURL),
		Roster:    directory.NewAssembler(directory.NewPostgresRosterView(db), tenants, store, idents),
		Companies: companies,
		Audit:     auditSvc,
	}
}

func newSender(cfg *config.Config) (notify.Sender, func()) {
	switch cfg.Notify.Backend {
	case config.NotifyBackendHTTP:
		return notify.NewHTTPSender(cfg.Notify.URL, cfg.Notify.Secret, cfg.Notify.Timeout), func() {}
	case config.NotifyBackendQueue:
		client := queue.NewClient(cfg.Redis)
		return notify.NewQueueSender(client), func() { client.Close() }
	default:
		return notify.LogSender{}, func() {}
	}
}
