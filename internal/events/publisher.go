package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/pkg/mq"
	"go.uber.org/zap"
)

const (
	Exchange = "payments"

	reconciliationKey = "payment.reconciliation"
)

type Publisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
	PublishReconciliationAlert(ctx context.Context, alert ReconciliationAlert) error
}

type publisher struct {
	mq     mq.Publisher
	logger *zap.Logger
}

func NewPublisher(mqPublisher mq.Publisher, logger *zap.Logger) Publisher {
	return &publisher{mq: mqPublisher, logger: logger}
}

func (p *publisher) PublishPaymentEvent(ctx context.Context, event PaymentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := RoutingKeyFor(event.NewStatus)
	if err := p.mq.Publish(ctx, Exchange, key, body); err != nil {
		p.logger.Error("Failed to publish payment event",
			zap.Error(err),
			zap.String("transactionID", event.TransactionID),
			zap.String("routingKey", key))
		return err
	}

	return nil
}

func (p *publisher) PublishReconciliationAlert(ctx context.Context, alert ReconciliationAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	if err := p.mq.Publish(ctx, Exchange, reconciliationKey, body); err != nil {
		p.logger.Error("Failed to publish reconciliation alert",
			zap.Error(err),
			zap.String("kind", string(alert.Kind)),
			zap.Int64("orderID", alert.OrderID))
		return err
	}

	return nil
}

func RoutingKeyFor(status model.TransactionStatus) string {
	return "payment." + strings.ToLower(string(status))
}

// Topology lists the exchange and queue bindings every process declares
// at startup.
func Topology() (string, []mq.Binding) {
	return Exchange, []mq.Binding{
		{
			Queue: "payments.notifications",
			RoutingKeys: []string{
				RoutingKeyFor(model.TransactionStatusCompleted),
				RoutingKeyFor(model.TransactionStatusFailed),
				RoutingKeyFor(model.TransactionStatusCancelled),
				RoutingKeyFor(model.TransactionStatusExpired),
			},
		},
		{
			Queue:       "payments.reconciliation",
			RoutingKeys: []string{reconciliationKey},
		},
	}
}
