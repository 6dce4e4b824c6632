package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/salon-api/internal/handler"
	"github.com/jwalitptl/salon-api/internal/handler/health"
	"github.com/jwalitptl/salon-api/internal/handler/prometheus"
	"github.com/jwalitptl/salon-api/internal/middleware"
	"github.com/jwalitptl/salon-api/internal/model"
)

// loginRoute stays open in maintenance mode so staff can still sign in.
const loginRoute = "/api/v1/auth/login"

type Handler interface {
	RegisterRoutes(handler.Routes)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	handlers []Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimit      *middleware.RateLimiterConfig
	CORSConfig     middleware.CORSConfig
	Settings       model.Settings
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	healthH *health.Handler,
	config RouterConfig,
	handlers ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = middleware.DefaultMaxBodySize
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(config.MaxBodyBytes),
	)
	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.Maintenance(config.Settings, loginRoute),
	)

	return &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		handlers: handlers,
	}
}

// RateLimitFrom converts requests per second into limiter settings.
func RateLimitFrom(rps float64, burst int, ttl time.Duration) *middleware.RateLimiterConfig {
	return &middleware.RateLimiterConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ClientTTL: ttl,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	authenticated := api.Group("", r.auth.Authenticate())
	routes := handler.Routes{
		Public:        api,
		Authenticated: authenticated,
		Staff:         authenticated.Group("", r.auth.RequireRole(model.RoleStaff, model.RoleAdmin)),
		Admin:         authenticated.Group("", r.auth.RequireRole(model.RoleAdmin)),
	}
	for _, h := range r.handlers {
		h.RegisterRoutes(routes)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
