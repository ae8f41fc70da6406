package mocks

import (
	"context"
	"time"

	"github.com/dukapay/payments/internal/model"
	"github.com/stretchr/testify/mock"
)

type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) Create(ctx context.Context, transaction *model.Transaction) error {
	args := m.Called(ctx, transaction)
	return args.Error(0)
}

func (m *TransactionRepository) UpdateStatus(ctx context.Context, transaction *model.Transaction, from []model.TransactionStatus) error {
	args := m.Called(ctx, transaction, from)
	return args.Error(0)
}

func (m *TransactionRepository) RecordCheck(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *TransactionRepository) GetByID(id string) (*model.Transaction, error) {
	args := m.Called(id)
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *TransactionRepository) GetByMerchantReference(reference string) (*model.Transaction, error) {
	args := m.Called(reference)
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *TransactionRepository) GetByTrackingID(trackingID string) (*model.Transaction, error) {
	args := m.Called(trackingID)
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *TransactionRepository) ListByOrderID(orderID int64) ([]model.Transaction, error) {
	args := m.Called(orderID)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *TransactionRepository) FindPendingOlderThan(cutoff time.Time, limit int) ([]model.Transaction, error) {
	args := m.Called(cutoff, limit)
	return args.Get(0).([]model.Transaction), args.Error(1)
}

func (m *TransactionRepository) FindCompletedSince(since time.Time) ([]model.Transaction, error) {
	args := m.Called(since)
	return args.Get(0).([]model.Transaction), args.Error(1)
}
