package main

import (
	"context"
	"time"

	"github.com/dukapay/payments/internal/config"
	"github.com/dukapay/payments/internal/database"
	"github.com/dukapay/payments/internal/events"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/repository"
	"github.com/dukapay/payments/internal/service"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/httpclient"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/mq"
	"github.com/dukapay/payments/pkg/pesapal"
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

			repository.NewTransactionRepository,
			repository.NewOrderRepository,
			repository.NewTransactionManager,

			events.NewPublisher,

			NewGatewayRegistry,

			service.NewTransitionService,
			service.NewPollerService,
		),
		fx.Invoke(runPoller),
	).Run()
}

func runPoller(cfg *config.Config, poller service.PollerService, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exchange, bindings := events.Topology()
			if err := rabbit.DeclareTopology(exchange, bindings); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			interval := cfg.Poller.Interval
			if interval <= 0 {
				interval = 30 * time.Second
			}

			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := poller.Sweep(appCtx); err != nil {
							logger.Error("failed to sweep pending transactions", zap.Error(err))
						}
					case <-appCtx.Done():
						logger.Info("poller context cancelled")
						return
					}
				}
			}()

			logger.Info("status poller started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping status poller")
			cancel()
			return rabbit.Close()
		},
	})
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

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
