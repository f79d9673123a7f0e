package router

import (
	"net/http"

	"notifyhub/internal/common"
	"notifyhub/internal/config"
	"notifyhub/internal/domain/notification"
	"notifyhub/internal/middleware"

	"github.com/gin-gonic/gin"
)

const serviceName = "notifyhub"

// New builds the HTTP engine. metricsHandler is mounted at /metrics when
// non-nil; everything under /api/v1 is rate limited and needs an API key.
func New(cfg *config.Config, handler *notification.Handler, metricsHandler http.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders),
	)

	mountOperational(engine, metricsHandler)
	mountAPI(engine.Group("/api/v1"), cfg, handler)

	return engine
}

func mountOperational(engine *gin.Engine, metricsHandler http.Handler) {
	engine.GET("/health", func(c *gin.Context) {
		common.Success(c, http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	if metricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(metricsHandler))
	}
}

// mountAPI limits before authenticating so floods of bad keys are throttled too.
func mountAPI(api *gin.RouterGroup, cfg *config.Config, handler *notification.Handler) {
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	api.Use(limiter.Middleware(), middleware.Auth(cfg.Auth.APIKeys))
	handler.RegisterRoutes(api)
}
