package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmehdipour/officer-portal/internal/app"
	"github.com/jmehdipour/officer-portal/internal/config"
	"github.com/jmehdipour/officer-portal/internal/http/middleware"
	"github.com/jmehdipour/officer-portal/internal/logger"
	"github.com/jmehdipour/officer-portal/internal/metrics"
	"github.com/jmehdipour/officer-portal/internal/model"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, svcs *app.Services, rds *redis.Client) *Server {
	metrics.MustRegister(prometheus.DefaultRegisterer)

	e := newRouter(cfg, svcs, rds)
	e.Use(echoMid.Logger())
	if lvl, ok := echoLevels[cfg.Log.Level]; ok {
		e.Logger.SetLevel(lvl)
	}
	return &Server{e: e}
}

var echoLevels = map[string]log.Lvl{
	"debug": log.DEBUG,
	"info":  log.INFO,
	"warn":  log.WARN,
	"error": log.ERROR,
}

func newRouter(cfg config.Config, svcs *app.Services, rds *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(
		echoMid.Recover(),
		echoMid.RequestIDWithConfig(echoMid.RequestIDConfig{Generator: uuid.NewString}),
	)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	adminMW := middleware.RequireAdmin(svcs.Auth)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	officerMW := middleware.RequireOfficer(svcs.Auth, svcs.Auth)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:officer:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// public
	v1 := e.Group("/v1")
	v1.POST("/auth/admin/login", adminLoginHandler(svcs.Auth))
	v1.POST("/auth/officer/login", officerLoginHandler(svcs.Auth))
	v1.POST("/registrations", submitRegistrationHandler(svcs.Registrations))
	v1.POST("/jobs/reset-expired-credits", resetExpiredCreditsHandler(svcs.Credits), middleware.JobKeyMiddleware(cfg.Auth.JobKeys))

	// admin console; moderators read and review, admins manage
	adm := v1.Group("/admin", adminMW)
	adm.GET("/me", adminMeHandler(svcs.Auth))
	adm.GET("/stats", dashboardStatsHandler(svcs.Stats))

	adm.GET("/officers", listOfficersHandler(svcs.Credits))
	adm.POST("/officers", createOfficerHandler(svcs.Credits), adminOnly)
	adm.GET("/officers/:id", getOfficerHandler(svcs.Credits))
	adm.PATCH("/officers/:id", updateOfficerHandler(svcs.Credits), adminOnly)
	adm.DELETE("/officers/:id", deleteOfficerHandler(svcs.Credits), adminOnly)
	adm.POST("/officers/:id/renew", renewOfficerHandler(svcs.Credits), adminOnly)

	adm.GET("/transactions", listTransactionsHandler(svcs.Credits))
	adm.POST("/transactions", addTransactionHandler(svcs.Credits), adminOnly)

	adm.GET("/rate-plans", listPlansHandler(svcs.Catalog))
	adm.POST("/rate-plans", createPlanHandler(svcs.Catalog), adminOnly)
	adm.PATCH("/rate-plans/:id", updatePlanHandler(svcs.Catalog), adminOnly)
	adm.DELETE("/rate-plans/:id", deletePlanHandler(svcs.Catalog), adminOnly)
	adm.GET("/plan-apis", listPlanAPIsHandler(svcs.Catalog))

	adm.GET("/apis", listAPIsHandler(svcs.Catalog))
	adm.POST("/apis", createAPIHandler(svcs.Catalog), adminOnly)
	adm.PATCH("/apis/:id", updateAPIHandler(svcs.Catalog), adminOnly)
	adm.DELETE("/apis/:id", deleteAPIHandler(svcs.Catalog), adminOnly)

	adm.GET("/queries", listQueriesHandler(svcs.Lookup, false))
	adm.GET("/reports/query-events", listQueryEventsHandler(svcs.Reports))
	adm.GET("/reports/category-usage", categoryUsageHandler(svcs.Reports))

	adm.GET("/manual-requests", listManualRequestsHandler(svcs.Manual, false))
	adm.POST("/manual-requests/:id/approve", approveManualRequestHandler(svcs.Manual))
	adm.POST("/manual-requests/:id/reject", rejectManualRequestHandler(svcs.Manual))

	adm.GET("/registrations", listRegistrationsHandler(svcs.Registrations))
	adm.POST("/registrations/:id/approve", approveRegistrationHandler(svcs.Registrations))
	adm.POST("/registrations/:id/reject", rejectRegistrationHandler(svcs.Registrations))

	adm.GET("/notifications", listNotificationsHandler(svcs.Notifications, adminInbox))
	adm.POST("/notifications/read-all", markAllNotificationsReadHandler(svcs.Notifications, adminInbox))
	adm.POST("/notifications/:id/read", markNotificationReadHandler(svcs.Notifications, adminInbox))
	adm.DELETE("/notifications", clearNotificationsHandler(svcs.Notifications, adminInbox))

	adm.POST("/jobs/reset-expired-credits", resetExpiredCreditsHandler(svcs.Credits), adminOnly)

	// officer portal
	off := v1.Group("/officer", officerMW)
	off.GET("/me", officerMeHandler())
	off.GET("/lookups", listLookupsHandler(svcs.Lookup))
	off.POST("/lookups/:key", runLookupHandler(svcs.Lookup), rlMW)
	off.GET("/queries", listQueriesHandler(svcs.Lookup, true))
	off.GET("/transactions", officerTransactionsHandler(svcs.Credits))
	off.GET("/manual-requests", listManualRequestsHandler(svcs.Manual, true))
	off.POST("/manual-requests", createManualRequestHandler(svcs.Manual))

	off.GET("/notifications", listNotificationsHandler(svcs.Notifications, officerInbox))
	off.POST("/notifications/read-all", markAllNotificationsReadHandler(svcs.Notifications, officerInbox))
	off.POST("/notifications/:id/read", markNotificationReadHandler(svcs.Notifications, officerInbox))
	off.DELETE("/notifications", clearNotificationsHandler(svcs.Notifications, officerInbox))

	return e
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
