package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MQPublisher struct {
	mock.Mock
}

func (m *MQPublisher) Publish(ctx context.Context, exchange string, routingKey string, body []byte) error {
	args := m.Called(ctx, exchange, routingKey, body)
	return args.Error(0)
}
