package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/internal/admin"
	"github.com/frahmantamala/work-permit/internal/auth"
	"github.com/frahmantamala/work-permit/internal/core/role"
	"github.com/frahmantamala/work-permit/internal/location"
	"github.com/frahmantamala/work-permit/internal/permit"
	"github.com/frahmantamala/work-permit/internal/transport/middleware"
	"github.com/frahmantamala/work-permit/internal/transport/swagger"
	"github.com/frahmantamala/work-permit/internal/user"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	Auth     *auth.Handler
	Gate     *auth.RoleGate
	User     *user.Handler
	Permit   *permit.Handler
	Admin    *admin.Handler
	Location *location.Handler
}

type Options struct {
	AllowedOrigins string
	OpenAPIPath    string
	MetricsEnabled bool
	MetricsPath    string
	RateLimit      internal.RateLimitConfig
	// Redis backs the auth rate limiter; nil disables limiting.
	Redis redis.Scripter
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, checks []HealthCheck, opts Options, lg *slog.Logger) {
	healthHandler := NewHealthHandler(checks...)

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(lg))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.Metrics)
	router.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))
	router.Use(middleware.LoggingMiddleware(lg))

	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.Handler())
	}

	router.Route(APIPrefix, func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(ar chi.Router) {
			ar.Use(middleware.RateLimit(opts.RateLimit, opts.Redis, "auth", lg))
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(h.Gate.Require(role.User)).Get("/me", h.User.GetCurrentUser)
				ur.With(h.Gate.RequireAdmin()).Get("/", h.User.ListUsers)
			})

			pr.Route("/permits", func(er chi.Router) {
				er.Use(h.Gate.Require(role.User))
				er.Post("/", h.Permit.CreatePermit)
				er.Get("/", h.Permit.ListPermits)
				er.Get("/{id}", h.Permit.GetPermit)

				er.Group(func(mr chi.Router) {
					mr.Use(h.Gate.RequireAdmin())
					mr.Put("/{id}", h.Permit.UpdatePermit)
					mr.Delete("/{id}", h.Permit.DeletePermit)
				})
			})

			pr.Route("/location", func(lr chi.Router) {
				lr.Use(h.Gate.Require(role.User))
				lr.Post("/toggle", h.Location.Toggle)
				lr.Post("/update", h.Location.Update)
			})

			pr.Route("/admin/admins", func(adr chi.Router) {
				adr.Use(h.Gate.RequireAdmin())
				adr.Post("/", h.Admin.CreateAdmin)
				adr.Get("/", h.Admin.ListAdmins)
				adr.Get("/{id}", h.Admin.GetAdmin)
				adr.Put("/{id}", h.Admin.UpdateAdmin)
				adr.Delete("/{id}", h.Admin.DeleteAdmin)
			})
		})
	})
}
