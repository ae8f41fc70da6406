package api

import (
	"github.com/dukapay/payments/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Handler struct {
	logger *zap.Logger
	db     *metrics.DatabaseMetricsCollector
}

func NewHandler(logger *zap.Logger, db *metrics.DatabaseMetricsCollector) *Handler {
	return &Handler{logger: logger, db: db}
}

func (h *Handler) Pong(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.HealthCheck(); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
