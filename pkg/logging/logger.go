package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json, text
	Service string
}

// Logger wraps slog.Logger with service-specific helpers
type Logger struct {
	*slog.Logger
	service string
}

// New creates a structured logger from config
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
	)
	return &Logger{Logger: logger, service: cfg.Service}
}

// NewFromEnv creates a logger configured from LOG_LEVEL and LOG_FORMAT
func NewFromEnv(service string) *Logger {
	return New(Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: service,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs the logger as the process default
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

// With returns a child logger with extra attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), service: l.service}
}

// WithError returns a child logger carrying the error
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

// contextKey avoids collisions with other packages' context values.
type contextKey string

const (
	ContextKeyCorrelationID contextKey = "correlationId"
	ContextKeyRequestID     contextKey = "requestId"
)

// WithContext returns a child logger enriched with correlation and request
// IDs found in the context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l
	if v, ok := ctx.Value(ContextKeyCorrelationID).(string); ok && v != "" {
		logger = logger.With("correlationId", v)
	}
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok && v != "" {
		logger = logger.With("requestId", v)
	}
	return logger
}

// Event logs a domain event emission
func (l *Logger) Event(eventType string, args ...any) {
	l.Info("Domain event", append([]any{"eventType", eventType}, args...)...)
}

// Audit logs an operator action for traceability
func (l *Logger) Audit(action, actor string, args ...any) {
	l.Info("Audit", append([]any{"action", action, "actor", actor}, args...)...)
}

// WeighbridgeReading logs an accepted scale sample
func (l *Logger) WeighbridgeReading(deviceID string, weightKg float64, stable bool) {
	l.Debug("Weighbridge reading",
		"deviceId", deviceID,
		"weightKg", weightKg,
		"stable", stable,
	)
}

// LedgerPosting logs a committed stock movement
func (l *Logger) LedgerPosting(movementID, zoneID, kind string, deltaKg float64) {
	l.Info("Ledger posting",
		"movementId", movementID,
		"zoneId", zoneID,
		"kind", kind,
		"deltaKg", deltaKg,
	)
}

// KafkaPublish logs an outgoing Kafka message
func (l *Logger) KafkaPublish(topic, key string, err error) {
	if err != nil {
		l.Error("Kafka publish failed", "topic", topic, "key", key, "error", err.Error())
		return
	}
	l.Debug("Kafka publish", "topic", topic, "key", key)
}

// KafkaConsume logs an incoming Kafka message
func (l *Logger) KafkaConsume(topic, eventType string, lag time.Duration) {
	l.Debug("Kafka consume", "topic", topic, "eventType", eventType, "lag", lag.String())
}

// MongoOp logs a database operation outcome at debug level
func (l *Logger) MongoOp(operation, collection string, elapsed time.Duration, err error) {
	if err != nil {
		l.Error("MongoDB operation failed",
			"operation", operation,
			"collection", collection,
			"elapsedMs", elapsed.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	l.Debug("MongoDB operation",
		"operation", operation,
		"collection", collection,
		"elapsedMs", elapsed.Milliseconds(),
	)
}
