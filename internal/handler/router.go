package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/jmerrifield20/SignalMiner/internal/metrics"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"go.uber.org/zap"
)

// RouterConfig holds the knobs of NewRouter.
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   int // 0 disables rate limiting
	MetricsEnabled bool
	Tokens         *auth.TokenIssuer // nil disables bearer auth
}

// NewRouter builds the daemon's gin engine. ctx bounds background work
// started by the middleware.
func NewRouter(ctx context.Context, svc *service.Service, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: !containsWildcard(cfg.CORSOrigins),
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(SecurityHeaders())
	router.Use(BodyLimit())
	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	if cfg.MetricsEnabled {
		router.Use(metrics.PrometheusMiddleware())
		router.GET("/metrics", metrics.Handler())
	}
	router.Use(RequestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		status := "ok"
		if svc.Ledger().Degraded() {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	})

	v1 := router.Group("/api/v1")
	NewLedgerHandler(svc, cfg.Tokens, logger).Register(v1)
	NewSpendHandler(svc, cfg.Tokens, logger).Register(v1)

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
