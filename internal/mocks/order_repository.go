package mocks

import (
	"context"
	"time"

	"github.com/dukapay/payments/internal/model"
	"github.com/stretchr/testify/mock"
)

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) GetByID(id int64) (*model.Order, error) {
	args := m.Called(id)
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *OrderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus, paidAt time.Time) error {
	args := m.Called(ctx, id, status, paidAt)
	return args.Error(0)
}

func (m *OrderRepository) FindPaidSince(since time.Time) ([]model.Order, error) {
	args := m.Called(since)
	return args.Get(0).([]model.Order), args.Error(1)
}
