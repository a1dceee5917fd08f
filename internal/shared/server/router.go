package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobassist/internal/services/health"
	"jobassist/internal/shared/config"
	"jobassist/internal/shared/metrics"
	"jobassist/internal/shared/server/middleware"
	"jobassist/internal/shared/server/respond"
)

// RouteRegistrar is implemented by feature handlers.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps holds the handlers mounted under /api/v1.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
	Limiter  *middleware.RateLimiter
	Health   *health.Service
}

// Routes that reach the assistant backend spend the backend quota.
var backendRoutes = map[string]bool{
	http.MethodPost + " /api/v1/applications":                       true,
	http.MethodPost + " /api/v1/session/messages":                   true,
	http.MethodPost + " /api/v1/session/messages/:messageId/resend": true,
	http.MethodPut + " /api/v1/session/documents/:type":             true,
	http.MethodPost + " /api/v1/conversations/:id/open":             true,
	http.MethodDelete + " /api/v1/conversations/:id":                true,
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	cfg := deps.Config
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Throttle(middleware.ThrottleOptions{
			Classify: func(c *gin.Context) string {
				if backendRoutes[c.Request.Method+" "+c.FullPath()] {
					return middleware.GroupBackend
				}
				return middleware.GroupLocal
			},
			Limiter: deps.Limiter,
			Quotas: map[string]middleware.Quota{
				middleware.GroupLocal:   {PerSecond: cfg.RateLimitPerSecond * 10, Burst: cfg.RateLimitBurst * 10},
				middleware.GroupBackend: {PerSecond: cfg.RateLimitPerSecond, Burst: cfg.RateLimitBurst},
			},
		}),
	)

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "route not found", nil)
	})

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})
	api.GET("/metrics", metrics.Handler())
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
