package mocks

import (
	"context"

	"github.com/dukapay/payments/internal/events"
	"github.com/stretchr/testify/mock"
)

type Publisher struct {
	mock.Mock
}

func (p *Publisher) PublishPaymentEvent(ctx context.Context, event events.PaymentEvent) error {
	args := p.Called(ctx, event)
	return args.Error(0)
}

func (p *Publisher) PublishReconciliationAlert(ctx context.Context, alert events.ReconciliationAlert) error {
	args := p.Called(ctx, alert)
	return args.Error(0)
}
