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
	"github.com/dukapay/payments/pkg/mq"
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

			events.NewPublisher,

			service.NewReconcilerService,
		),
		fx.Invoke(runReconciler),
	).Run()
}

func runReconciler(cfg *config.Config, reconciler service.ReconcilerService, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			exchange, bindings := events.Topology()
			if err := rabbit.DeclareTopology(exchange, bindings); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			interval := cfg.Reconciler.Interval
			if interval <= 0 {
				interval = time.Hour
			}

			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := reconciler.Reconcile(appCtx); err != nil {
							logger.Error("failed to reconcile ledgers", zap.Error(err))
						}
					case <-appCtx.Done():
						logger.Info("reconciler context cancelled")
						return
					}
				}
			}()

			logger.Info("reconciler started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping reconciler")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
