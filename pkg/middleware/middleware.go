package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slspinola/bee2waste-sub002/pkg/logging"
	"github.com/slspinola/bee2waste-sub002/pkg/metrics"
)

// SetupConfig bundles what the standard middleware chain needs.
type SetupConfig struct {
	ServiceName string
	Logger      *logging.Logger
	Metrics     *metrics.Registry
}

// Setup installs the standard middleware chain in the order the platform
// services use: recovery first, then identifiers, then observability.
func Setup(router *gin.Engine, cfg SetupConfig) {
	router.Use(Recovery(cfg.Logger.Logger))
	router.Use(RequestID())
	router.Use(CorrelationID())
	router.Use(LoggerWithConfig(DefaultLoggerConfig(cfg.Logger.Logger)))
	if cfg.Metrics != nil {
		router.Use(MetricsMiddleware(cfg.Metrics))
	}
	router.Use(SimpleTracingMiddleware(cfg.ServiceName))

	router.NoRoute(NoRoute())
	router.NoMethod(NoMethod())
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// HealthCheck is the liveness endpoint: the process is up.
func HealthCheck(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"time":    time.Now().UTC(),
		})
	}
}

// ReadinessCheck probes the given dependencies with a short timeout.
func ReadinessCheck(serviceName string, checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				results[name] = "ok"
			}
		}

		c.JSON(status, gin.H{
			"status":  map[bool]string{true: "ready", false: "not ready"}[status == http.StatusOK],
			"service": serviceName,
			"checks":  results,
		})
	}
}
