package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dukapay/payments/internal/config"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/mocks"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/service"
	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestPoller_Sweep(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	cfg := &config.Config{
		Poller: config.Poller{
			Interval:  time.Minute,
			BatchSize: 10,
			MinAge:    time.Minute,
			MaxChecks: 3,
			Backoff:   backoff.Policy{InitialInterval: time.Minute, Coefficient: 2.0},
		},
	}

	trackingID := "ws_CO_191220191020363925"

	pendingTransaction := func(retryCount int, lastCheckedAt *time.Time) model.Transaction {
		return model.Transaction{
			ID:                "4f0c39f2-0b3c-4a2e-a2d7-2f1f9a9d1a77",
			MerchantReference: "ord-72-a",
			OrderID:           72,
			Gateway:           model.GatewayMobileMoney,
			Amount:            decimal.NewFromInt(150),
			Currency:          "KES",
			Status:            model.TransactionStatusPending,
			GatewayTrackingID: &trackingID,
			RetryCount:        retryCount,
			LastCheckedAt:     lastCheckedAt,
		}
	}

	t.Run("resolves a pending transaction the gateway completed", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		lastChecked := time.Now().Add(-10 * time.Minute)
		completedAt := time.Now().Add(-time.Minute)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{pendingTransaction(1, &lastChecked)}, nil)

		mockClient.On("QueryStatus", ctx, trackingID).Return(gateway.StatusResult{
			Outcome:          gateway.OutcomeCompleted,
			ConfirmationCode: "NLJ7RT61SV",
			CompletedAt:      &completedAt,
			RawResponse:      []byte(`{"ResultCode":"0"}`),
		}, nil)

		mockTransitions.On("Apply", ctx, mock.AnythingOfType("*model.Transaction"),
			model.TransactionStatusCompleted,
			mock.MatchedBy(func(update service.TransitionUpdate) bool {
				return update.ConfirmationCode != nil && *update.ConfirmationCode == "NLJ7RT61SV" &&
					update.LastCheckedAt != nil
			})).Return(true, nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockClient.AssertExpectations(t)
		mockTransitions.AssertExpectations(t)
		mockTransactionRepo.AssertNotCalled(t, "RecordCheck")
	})

	t.Run("records the check when the gateway still says pending", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		transaction := pendingTransaction(0, nil)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{transaction}, nil)
		mockClient.On("QueryStatus", ctx, trackingID).
			Return(gateway.StatusResult{Outcome: gateway.OutcomePending}, nil)
		mockTransactionRepo.On("RecordCheck", ctx, transaction.ID, mock.AnythingOfType("time.Time")).
			Return(nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockTransactionRepo.AssertExpectations(t)
		mockTransitions.AssertNotCalled(t, "Apply")
	})

	t.Run("expires a transaction that exhausted its checks", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		lastChecked := time.Now().Add(-time.Hour)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{pendingTransaction(3, &lastChecked)}, nil)

		mockTransitions.On("Apply", ctx, mock.AnythingOfType("*model.Transaction"),
			model.TransactionStatusExpired,
			mock.MatchedBy(func(update service.TransitionUpdate) bool {
				return update.ErrorMessage != nil && strings.Contains(*update.ErrorMessage, "3 checks") &&
					update.LastCheckedAt != nil
			})).Return(true, nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockTransitions.AssertExpectations(t)
		mockClient.AssertNotCalled(t, "QueryStatus")
	})

	t.Run("waits out the backoff between checks", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		justChecked := time.Now().Add(-time.Second)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{pendingTransaction(1, &justChecked)}, nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockClient.AssertNotCalled(t, "QueryStatus")
		mockTransactionRepo.AssertNotCalled(t, "RecordCheck")
		mockTransitions.AssertNotCalled(t, "Apply")
	})

	t.Run("counts a failed query and keeps sweeping", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		transaction := pendingTransaction(0, nil)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{transaction}, nil)
		mockClient.On("QueryStatus", ctx, trackingID).
			Return(gateway.StatusResult{}, gateway.ErrUnavailable)
		mockTransactionRepo.On("RecordCheck", ctx, transaction.ID, mock.AnythingOfType("time.Time")).
			Return(nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockTransactionRepo.AssertExpectations(t)
		mockTransitions.AssertNotCalled(t, "Apply")
	})

	t.Run("does nothing when no pending work exists", func(t *testing.T) {
		mockTransactionRepo := &mocks.TransactionRepository{}
		mockTransitions := &mocks.TransitionService{}
		mockClient := &mocks.GatewayClient{}
		mockClient.On("Name").Return(gateway.MobileMoney)

		svc := service.NewPollerService(mockTransactionRepo, service.NewGatewayRegistry(mockClient),
			mockTransitions, cfg, metrics.NewMetricsWith(prometheus.NewRegistry()), logger)

		mockTransactionRepo.On("FindPendingOlderThan", mock.AnythingOfType("time.Time"), 10).
			Return([]model.Transaction{}, nil)

		err := svc.Sweep(ctx)

		assert.NoError(t, err)

		mockClient.AssertNotCalled(t, "QueryStatus")
	})
}
