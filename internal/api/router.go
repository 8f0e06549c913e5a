package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/teamroster/internal/api/handlers"
	"github.com/nikhilbhutani/teamroster/internal/api/middleware"
	"github.com/nikhilbhutani/teamroster/internal/auth"
	"github.com/nikhilbhutani/teamroster/internal/config"
)

// Services are the collaborators the routes call into. cmd/api builds them
// against Postgres and Redis, or in memory when no database is reachable.
type Services struct {
	Workflow  handlers.Workflow
	Roster    handlers.RosterReader
	Companies handlers.CompanyCreator
	Audit     interface {
		handlers.AuditLogger
		handlers.AuditReader
	}
}

type Router struct {
	mux        *chi.Mux
	db         *pgxpool.Pool
	redis      *redis.Client
	cfg        *config.Config
	svc        Services
	jwt        *auth.JWTMiddleware
	serviceKey *auth.ServiceKeyMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, svc Services) *Router {
	return &Router{
		mux:        chi.NewRouter(),
		db:         db,
		redis:      rdb,
		cfg:        cfg,
		svc:        svc,
		jwt:        auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		serviceKey: auth.NewServiceKeyMiddleware(cfg.Auth.ServiceKeyHeader, cfg.Auth.ServiceKey),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	if rt.cfg.Server.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(float64(rt.cfg.Server.RateLimitRPS), rt.cfg.Server.RateLimitRPS*2)
		r.Use(rl.Limit)
	}

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	membersH := handlers.NewMembersHandler(rt.svc.Workflow, rt.svc.Roster)
	companyH := handlers.NewCompanyHandler(rt.svc.Companies, rt.svc.Audit)
	adminH := handlers.NewAdminHandler(rt.svc.Workflow, rt.svc.Audit)
	invitationH := handlers.NewInvitationHandler(rt.svc.Workflow)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Post("/companies", companyH.Create)
		r.Route("/companies/{tenantID}", func(r chi.Router) {
			r.Get("/members", membersH.List)
			r.Post("/invitations", membersH.Invite)
			r.Get("/audit", adminH.AuditLogs)
		})

		r.Patch("/memberships/{membershipID}", membersH.ChangeRole)
		r.Delete("/memberships/{membershipID}", membersH.Remove)
	})

	// Callbacks from the identity flow
	r.Route("/internal/v1", func(r chi.Router) {
		r.Use(rt.serviceKey.Authenticate)

		r.Post("/invitations/{membershipID}/accept", invitationH.Accept)
		r.Post("/invitations/{membershipID}/decline", invitationH.Decline)
	})

	return r
}
