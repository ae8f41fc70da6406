package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dukapay/payments/internal/metrics"
)

// slowThreshold leaves room for the synchronous gateway round trip a
// payment submission holds before the request is flagged as slow.
const slowThreshold = 5 * time.Second

// HTTPMetricsMiddleware records request count, duration, response size
// and the in-flight gauge. The registered route pattern is the path
// label, so /payments/:reference stays one series per route instead of
// one per reference.
func HTTPMetricsMiddleware(m *metrics.Metrics, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		err := c.Next()

		duration := time.Since(start)

		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()
		statusCode := strconv.Itoa(c.Response().StatusCode())
		responseSize := len(c.Response().Body())

		m.RecordHTTPRequest(method, path, statusCode, duration, responseSize)

		if duration > slowThreshold {
			logger.Warn("Slow HTTP request",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("status_code", statusCode),
				zap.Duration("duration", duration),
				zap.Int("response_size", responseSize),
			)
		}

		return err
	}
}
