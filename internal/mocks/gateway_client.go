package mocks

import (
	"context"

	"github.com/dukapay/payments/pkg/gateway"
	"github.com/stretchr/testify/mock"
)

type GatewayClient struct {
	mock.Mock
}

func (g *GatewayClient) Name() gateway.Name {
	args := g.Called()
	return args.Get(0).(gateway.Name)
}

func (g *GatewayClient) Submit(ctx context.Context, intent gateway.PaymentIntent) (gateway.SubmissionResult, error) {
	args := g.Called(ctx, intent)
	return args.Get(0).(gateway.SubmissionResult), args.Error(1)
}

func (g *GatewayClient) QueryStatus(ctx context.Context, trackingID string) (gateway.StatusResult, error) {
	args := g.Called(ctx, trackingID)
	return args.Get(0).(gateway.StatusResult), args.Error(1)
}
