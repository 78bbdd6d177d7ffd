package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/ndk123-web/backend-structure/internal/infra/config"
	"github.com/ndk123-web/backend-structure/internal/transport/http/handlers"
	"github.com/ndk123-web/backend-structure/internal/transport/http/middleware"
	"github.com/ndk123-web/backend-structure/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Registration  *usecase.RegistrationService
	Sessions      *usecase.SessionService
	Authenticator *usecase.Authenticator
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Telemetry.TracingEnabled {
		r.Use(otelgin.Middleware(serviceName(cfg)))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(cfg.HTTP.CORSOrigins))

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.Services.Sessions == nil || deps.Services.Authenticator == nil {
		return r
	}

	api := r.Group("/api/v1")
	{
		userHandler := handlers.NewUserHandler(deps.Services.Registration, deps.Services.Sessions, cfg.Cookie, deps.Logger)

		mw := buildRateLimitMiddlewares(deps, cfg)
		mw.Auth = []gin.HandlerFunc{middleware.Authenticate(deps.Services.Authenticator, cfg.Cookie, deps.Logger)}

		userHandler.RegisterRoutes(api.Group("/users"), mw)
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, cfg *config.AppConfig) handlers.UserRouteMiddlewares {
	if deps.RateLimiter == nil || !cfg.RateLimit.Enabled {
		return handlers.UserRouteMiddlewares{}
	}

	login, register, refresh := middleware.AuthRateLimitRules(cfg.RateLimit)
	var mw handlers.UserRouteMiddlewares
	if login.Limit > 0 {
		mw.Login = []gin.HandlerFunc{deps.RateLimiter.RateLimit(login)}
	}
	if register.Limit > 0 {
		mw.Register = []gin.HandlerFunc{deps.RateLimiter.RateLimit(register)}
	}
	if refresh.Limit > 0 {
		mw.Refresh = []gin.HandlerFunc{deps.RateLimiter.RateLimit(refresh)}
	}
	return mw
}

func serviceName(cfg *config.AppConfig) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	if cfg.App.Name != "" {
		return cfg.App.Name
	}
	return "videotube"
}
