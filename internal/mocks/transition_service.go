package mocks

import (
	"context"

	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/service"
	"github.com/stretchr/testify/mock"
)

type TransitionService struct {
	mock.Mock
}

func (t *TransitionService) Apply(ctx context.Context, transaction *model.Transaction, target model.TransactionStatus, update service.TransitionUpdate) (bool, error) {
	args := t.Called(ctx, transaction, target, update)
	return args.Bool(0), args.Error(1)
}
