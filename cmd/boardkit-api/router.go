package main

import (
	"context"
	"net/http"
	"time"

	"boardkit-api/internal/auth"
	"boardkit-api/internal/config"
	"boardkit-api/internal/http/docs"
	"boardkit-api/internal/http/handler"
	"boardkit-api/internal/http/middleware"
	"boardkit-api/internal/observability/logger"
	"boardkit-api/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ReadinessCheck pings one dependency.
type ReadinessCheck func(ctx context.Context) error

// RouterDeps holds everything buildRouter wires together.
type RouterDeps struct {
	Cfg         *config.Config
	Log         *logger.Logger
	Resolver    *auth.KeyResolver
	S2SStore    *auth.S2STokenStore
	Idempotency middleware.IdempotencyStore
	RateLimiter middleware.RateLimiter
	Metrics     *telemetry.Metrics
	Prometheus  *prometheus.Registry

	// Probed by /ready, keyed by dependency name.
	Readiness map[string]ReadinessCheck

	BoardHandler      *handler.BoardHandler
	MemberHandler     *handler.MemberHandler
	InvitationHandler *handler.InvitationHandler
	DebugHandler      *handler.DebugHandler
}

func buildRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLoggingMiddleware(deps.Log))
	r.Use(middleware.RecoveryMiddleware(deps.Log))
	r.Use(telemetry.OTelMiddleware(deps.Cfg.OTELServiceName))
	if deps.Metrics != nil {
		r.Use(telemetry.MetricsMiddleware(deps.Metrics))
	}

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"ok"}`)
	})
	r.Get("/ready", readinessHandler(deps.Log, deps.Readiness))

	registry := deps.Prometheus
	if registry == nil {
		registry = telemetry.NewPrometheusRegistry()
	}
	r.Method(http.MethodGet, "/metrics", telemetry.PrometheusHandler(registry, deps.Cfg.MetricsToken))

	r.Get("/openapi.yaml", docs.OpenAPIHandler().ServeHTTP)
	r.Get("/docs", docs.ScalarDocsHandler("/openapi.yaml").ServeHTTP)

	authn := auth.AuthMiddleware(deps.Resolver, deps.S2SStore)

	if deps.Cfg.IsDev() && deps.DebugHandler != nil {
		r.Route("/debug", func(r chi.Router) {
			r.With(authn).Get("/auth", deps.DebugHandler.GetAuthDebug)
			r.With(authn, middleware.BoardMiddleware).Get("/auth/boards/{boardId}", deps.DebugHandler.GetBoardAccessDebug)
			r.Get("/db/ping", deps.DebugHandler.PingDB)
		})
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(authn)
		r.Use(middleware.RateLimitMiddleware(deps.RateLimiter, deps.Cfg.RateLimitPerUserPerMin))
		idem := middleware.IdempotencyMiddleware(deps.Idempotency)

		if h := deps.BoardHandler; h != nil {
			r.Get("/boards", h.ListBoards)
			r.With(idem).Post("/boards", h.CreateBoard)
		}

		r.Route("/boards/{boardId}", func(r chi.Router) {
			r.Use(middleware.BoardMiddleware)

			if h := deps.BoardHandler; h != nil {
				r.Get("/", h.GetBoard)
				r.Patch("/", h.UpdateBoard)
				r.Delete("/", h.DeleteBoard)
				r.Get("/access", h.GetAccess)
			}

			if h := deps.MemberHandler; h != nil {
				r.With(idem).Post("/transfer", h.TransferOwnership)
				r.Route("/members", func(r chi.Router) {
					r.Get("/", h.ListMembers)
					r.With(idem).Post("/", h.AddMember)
					r.Patch("/{memberId}", h.UpdateMemberRole)
					r.Delete("/{memberId}", h.RemoveMember)
				})
			}

			if h := deps.InvitationHandler; h != nil {
				r.Route("/invitations", func(r chi.Router) {
					r.Get("/", h.ListBoardInvitations)
					r.With(idem).Post("/", h.InviteMember)
					r.Delete("/{invitationId}", h.CancelInvitation)
				})
			}
		})

		if h := deps.InvitationHandler; h != nil {
			r.Get("/invitations", h.ListMyInvitations)
			r.With(idem).Post("/invitations/{invitationId}/respond", h.RespondInvitation)
		}
	})

	return r
}

func readinessHandler(log *logger.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Error(ctx, "readiness check failed",
					logger.Module("http"),
					zap.String("dependency", name),
					zap.Error(err),
				)
				writeStatus(w, http.StatusServiceUnavailable, `{"status":"error","message":"`+name+` unavailable"}`)
				return
			}
		}
		writeStatus(w, http.StatusOK, `{"status":"ready"}`)
	}
}

func writeStatus(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
