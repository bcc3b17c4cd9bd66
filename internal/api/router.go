package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hardikbhesaniya/vcallserver/internal/api/handlers"
	"github.com/hardikbhesaniya/vcallserver/internal/api/middleware"
	"github.com/hardikbhesaniya/vcallserver/internal/config"
	"github.com/hardikbhesaniya/vcallserver/internal/service"
	"github.com/hardikbhesaniya/vcallserver/internal/signaling"
	"github.com/hardikbhesaniya/vcallserver/pkg/metrics"
	"github.com/hardikbhesaniya/vcallserver/pkg/ratelimit"
)

// SetupRouter wires the hub, the match service and the HTTP surface
func SetupRouter(cfg *config.Config) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Signaling hub and matching core
	hub := signaling.NewHub(collector, nil)
	go hub.Run()

	matcher := service.NewMatchService(hub, collector, nil)

	wsHandler := handlers.NewWebSocketHandler(hub, matcher)

	// Upgrade abuse guard, keyed by client IP
	upgradeLimiter := ratelimit.NewLimiter(cfg.UpgradeRateCapacity, cfg.UpgradeRateRefill)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler(registry)))
	router.GET("/ws", middleware.RateLimit(upgradeLimiter, middleware.IPKeyFunc), wsHandler.HandleWebSocket)

	return router
}
