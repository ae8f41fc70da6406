package main

import (
	"context"
	"time"

	"github.com/dukapay/payments/internal/api"
	v1 "github.com/dukapay/payments/internal/api/v1"
	"github.com/dukapay/payments/internal/api/v1/middleware"
	apivalidator "github.com/dukapay/payments/internal/api/validator"
	"github.com/dukapay/payments/internal/config"
	"github.com/dukapay/payments/internal/database"
	"github.com/dukapay/payments/internal/errors"
	"github.com/dukapay/payments/internal/events"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/repository"
	"github.com/dukapay/payments/internal/service"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/httpclient"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/mq"
	"github.com/dukapay/payments/pkg/pesapal"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,

			database.NewConnection,
			NewMQConnection,
			NewMQPublisher,

			metrics.NewMetrics,
			metrics.NewSystemCollector,
			metrics.NewDatabaseMetricsCollector,

			repository.NewTransactionRepository,
			repository.NewOrderRepository,
			repository.NewTransactionManager,

			events.NewPublisher,

			NewGatewayRegistry,
			NewGatewayLimits,

			service.NewTransitionService,
			service.NewPaymentService,
			service.NewCallbackService,

			NewValidator,
			NewFiberApp,

			api.NewHandler,
			v1.NewHandler,
		),
		fx.Invoke(startServer),
	).Run()
}

func startServer(app *fiber.App, handler *api.Handler, v1Handler *v1.Handler, cfg *config.Config,
	m *metrics.Metrics, system *metrics.SystemCollector, db *metrics.DatabaseMetricsCollector,
	rabbit *mq.RabbitMQ, logger *zap.Logger, lc fx.Lifecycle) {

	app.Use(middleware.HTTPMetricsMiddleware(m, logger))
	api.SetupRoutes(app, handler, v1Handler)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exchange, bindings := events.Topology()
			if err := rabbit.DeclareTopology(exchange, bindings); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			system.Start(15 * time.Second)
			db.Start(15 * time.Second)

			go app.Listen(cfg.API.Port)

			logger.Info("api started", zap.String("port", cfg.API.Port))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping api")

			system.Stop()
			db.Stop()

			if err := app.ShutdownWithContext(ctx); err != nil {
				logger.Error("fiber shutdown failed", zap.Error(err))
			}

			return rabbit.Close()
		},
	})
}

func NewFiberApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: errors.ErrorHandler()})
}

func NewValidator(m *metrics.Metrics) apivalidator.IXValidator {
	return apivalidator.NewXValidator(validator.New(), m)
}

func NewGatewayRegistry(cfg *config.Config) *service.GatewayRegistry {
	clients := make([]gateway.Client, 0, 2)

	if cfg.Mpesa.Enable {
		client := httpclient.NewHTTPClient(cfg.Mpesa.Timeout)
		clients = append(clients, mpesa.New(cfg.Mpesa, client, cfg.Retry))
	}

	if cfg.Pesapal.Enable {
		client := httpclient.NewHTTPClient(cfg.Pesapal.Timeout)
		clients = append(clients, pesapal.New(cfg.Pesapal, client, cfg.Retry))
	}

	return service.NewGatewayRegistry(clients...)
}

func NewGatewayLimits(cfg *config.Config) service.Limits {
	return service.NewGatewayLimits(cfg.Mpesa, cfg.Pesapal)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
