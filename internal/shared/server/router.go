package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"interntrack-backend/internal/shared/config"
	"interntrack-backend/internal/shared/metrics"
	"interntrack-backend/internal/shared/server/middleware"
	"interntrack-backend/internal/shared/tracing"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config    config.Config
	Documents RouteRegistrar
	Records   RouteRegistrar
	Students  RouteRegistrar
	// Drive registers its own public callback, so it gets both groups.
	Drive interface {
		RegisterRoutes(public, secured *gin.RouterGroup)
	}
	RateLimits map[string]middleware.RateLimitRule
	// HealthChecks are run by GET /health; any failure answers 503.
	HealthChecks map[string]HealthCheck
}

// DefaultRateLimits applies per user to the document pipeline.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	middleware.RateGroupUpload: {Rate: 0.5, Burst: 10},
	middleware.RateGroupVerify: {Rate: 1, Burst: 20},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		otelgin.Middleware(tracing.ServiceName),
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.HealthChecks))
	api.GET("/metrics", metrics.Handler())

	limits := deps.RateLimits
	if limits == nil {
		limits = DefaultRateLimits
	}
	secured := api.Group("")
	secured.Use(
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    limits,
			GroupFor: middleware.DocumentRateGroup,
		}),
	)
	registerMeRoutes(secured)

	for _, h := range []RouteRegistrar{deps.Documents, deps.Records, deps.Students} {
		if h != nil {
			h.RegisterRoutes(secured)
		}
	}
	if deps.Drive != nil {
		deps.Drive.RegisterRoutes(api, secured)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":5000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
