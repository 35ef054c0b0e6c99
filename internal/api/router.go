package api

import (
	"sheltermail/internal/config"
	"sheltermail/internal/metrics"
	"sheltermail/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(
	messageHandler *MessageHandler,
	cronHandler *CronHandler,
	streamHandler *StreamHandler,
	rdb *redis.Client,
	cfg *config.Config,
) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.CorsMiddleware(),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
		middleware.TraceMiddleware(),
	)
	r.SetTrustedProxies(nil)

	// Public
	r.GET("/health", messageHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Producers enqueue here; durability only, no delivery coupling.
	writeLimiter := middleware.RateLimitMiddleware(rdb, cfg.RateLimit.RequestsPerSecond)
	r.POST("/v1/messages", writeLimiter, messageHandler.Enqueue)

	// Scheduler trigger
	cron := r.Group("/v1/cron")
	cron.Use(middleware.SecretAuth("X-Cron-Secret", cfg.Auth.CronSecret))
	{
		cron.POST("/run", cronHandler.Run)
	}

	// Operator surface
	admin := r.Group("/v1/admin")
	admin.Use(middleware.SecretAuth("X-Admin-Token", cfg.Auth.AdminToken))
	{
		admin.GET("/messages", messageHandler.List)
		admin.POST("/messages/:id/requeue", messageHandler.Requeue)
		admin.GET("/stream", streamHandler.Watch)
		admin.GET("/events", streamHandler.RecentEvents)
	}

	return r
}
