package main

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditsvc "aquicultura/internal/audit"
	audithandler "aquicultura/internal/audit/handler"
	auditpostgres "aquicultura/internal/audit/store/postgres"
	authhandler "aquicultura/internal/auth/handler"
	"aquicultura/internal/auth/jwt"
	authservice "aquicultura/internal/auth/service"
	"aquicultura/internal/dashboard"
	dashboardhandler "aquicultura/internal/dashboard/handler"
	"aquicultura/internal/indicator"
	indicatorhandler "aquicultura/internal/indicator/handler"
	indicatorpostgres "aquicultura/internal/indicator/store/postgres"
	"aquicultura/internal/licensing"
	licensinghandler "aquicultura/internal/licensing/handler"
	licensingpostgres "aquicultura/internal/licensing/store/postgres"
	"aquicultura/internal/planaxis"
	planaxishandler "aquicultura/internal/planaxis/handler"
	planaxispostgres "aquicultura/internal/planaxis/store/postgres"
	"aquicultura/internal/platform/config"
	"aquicultura/internal/platform/metrics"
	"aquicultura/internal/platform/middleware"
	"aquicultura/internal/platform/redis"
	"aquicultura/internal/project"
	projecthandler "aquicultura/internal/project/handler"
	projectpostgres "aquicultura/internal/project/store/postgres"
	"aquicultura/internal/province"
	provincehandler "aquicultura/internal/province/handler"
	provincepostgres "aquicultura/internal/province/store/postgres"
	"aquicultura/internal/ratelimit"
	ratelimitstore "aquicultura/internal/ratelimit/store"
	userhandler "aquicultura/internal/user/handler"
	userservice "aquicultura/internal/user/service"
	userstore "aquicultura/internal/user/store"
	"aquicultura/pkg/platform/httputil"
	"aquicultura/pkg/platform/tx"
)

// newRouter assembles every context against PostgreSQL, mounts the API under
// /api, and exposes /health and /metrics outside the auth boundary.
func newRouter(cfg config.Config, db *sql.DB, redisClient *redis.Client, log *slog.Logger) chi.Router {
	m := metrics.New()
	runner := tx.SQLRunner{DB: db}

	users := userstore.NewPostgres(db)
	auditStore := auditpostgres.New(db)
	projectStore := projectpostgres.New(db)
	provinceStore := provincepostgres.New(db)
	indicatorStore := indicatorpostgres.New(db)
	licensingStore := licensingpostgres.New(db)
	planStore := planaxispostgres.New(db)

	auditor := auditsvc.NewService(auditStore, users, m)
	userSvc := userservice.New(users, auditor, runner)

	tokens := jwt.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var limiterStore ratelimit.Store = ratelimitstore.NewMemory()
	if redisClient != nil {
		limiterStore = ratelimitstore.NewRedis(redisClient.Client)
	}
	limiter := ratelimit.New(limiterStore, cfg.LoginMaxAttempts, cfg.LoginWindow, cfg.LoginBlock, log, m)

	authSvc := authservice.New(userSvc, users, tokens, limiter, auditor, runner, m)

	projectSvc := project.NewService(projectStore, auditor, runner, provinceStore)
	provinceSvc := province.NewService(provinceStore, projectStore)
	indicatorSvc := indicator.NewService(indicatorStore, auditor, runner, projectStore)
	licensingSvc := licensing.NewService(licensingStore, auditor, runner, projectStore)
	planSvc := planaxis.NewService(planStore, auditor, runner, projectStore)
	dashboardSvc := dashboard.NewService(projectSvc, indicatorSvc, licensingSvc, planSvc, provinceSvc, auditor)

	requireAuth := middleware.RequireAuth(tokens, users, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Latency(m))
	r.Use(middleware.ClientIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		authhandler.New(authSvc, log).Register(r, requireAuth)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			userhandler.New(userSvc, log).Register(r)
			audithandler.New(auditor, log).Register(r)
			projecthandler.New(projectSvc, log).Register(r)
			provincehandler.New(provinceSvc, log).Register(r)
			indicatorhandler.New(indicatorSvc, log).Register(r)
			licensinghandler.New(licensingSvc, log).Register(r)
			planaxishandler.New(planSvc, log).Register(r)
			dashboardhandler.New(dashboardSvc, log).Register(r)
		})
	})

	return r
}
