package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukapay/payments/internal/config"
	"github.com/dukapay/payments/internal/events"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/repository"
	"go.uber.org/zap"
)

const defaultReconcilerWindow = 24 * time.Hour

// ReconcilerService cross-checks recent orders against their
// transactions and raises an alert for every mismatch. It never touches
// the rows; fixing the books is a human decision.
type ReconcilerService interface {
	Reconcile(ctx context.Context) error
}

type reconciler struct {
	transactionRepo repository.TransactionRepository
	orderRepo       repository.OrderRepository
	publisher       events.Publisher
	window          time.Duration
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewReconcilerService(transactionRepo repository.TransactionRepository, orderRepo repository.OrderRepository,
	publisher events.Publisher, cfg *config.Config, metrics *metrics.Metrics, logger *zap.Logger) ReconcilerService {
	window := cfg.Reconciler.Window
	if window <= 0 {
		window = defaultReconcilerWindow
	}

	return &reconciler{
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		publisher:       publisher,
		window:          window,
		metrics:         metrics,
		logger:          logger,
	}
}

func (r *reconciler) Reconcile(ctx context.Context) error {
	since := time.Now().Add(-r.window)

	var alerts []events.ReconciliationAlert

	fromOrders, err := r.checkPaidOrders(since)
	if err != nil {
		return err
	}
	alerts = append(alerts, fromOrders...)

	fromTransactions, err := r.checkCompletedTransactions(since)
	if err != nil {
		return err
	}
	alerts = append(alerts, fromTransactions...)

	for _, alert := range alerts {
		r.metrics.RecordReconciliationMismatch(string(alert.Kind))
		r.logger.Warn("Reconciliation mismatch",
			zap.String("kind", string(alert.Kind)),
			zap.Int64("orderID", alert.OrderID),
			zap.String("transactionID", alert.TransactionID),
			zap.String("detail", alert.Detail))

		if err := r.publisher.PublishReconciliationAlert(ctx, alert); err != nil {
			return err
		}
	}

	r.logger.Info("Reconciliation pass finished",
		zap.Time("since", since),
		zap.Int("mismatches", len(alerts)))

	return nil
}

// checkPaidOrders flags orders marked paid that no completed
// transaction backs up.
func (r *reconciler) checkPaidOrders(since time.Time) ([]events.ReconciliationAlert, error) {
	orders, err := r.orderRepo.FindPaidSince(since)
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	var alerts []events.ReconciliationAlert

	for _, order := range orders {
		transactions, err := r.transactionRepo.ListByOrderID(order.ID)
		if err != nil {
			return nil, NewServiceError(ErrCodeDatabase, err)
		}

		if len(completedOf(transactions)) == 0 {
			alerts = append(alerts, events.ReconciliationAlert{
				Kind:       events.AlertOrderPaidWithoutTransaction,
				OrderID:    order.ID,
				Detail:     fmt.Sprintf("order %d is paid but no completed transaction exists", order.ID),
				DetectedAt: time.Now(),
			})
		}
	}

	return alerts, nil
}

// checkCompletedTransactions flags completed transactions whose order
// never became paid and orders charged more than once.
func (r *reconciler) checkCompletedTransactions(since time.Time) ([]events.ReconciliationAlert, error) {
	completed, err := r.transactionRepo.FindCompletedSince(since)
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	byOrder := make(map[int64][]model.Transaction)
	for _, transaction := range completed {
		byOrder[transaction.OrderID] = append(byOrder[transaction.OrderID], transaction)
	}

	var alerts []events.ReconciliationAlert

	for orderID, transactions := range byOrder {
		order, err := r.orderRepo.GetByID(orderID)
		if err != nil && !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NewServiceError(ErrCodeDatabase, err)
		}

		if order == nil || order.PaymentStatus != model.PaymentStatusPaid {
			alerts = append(alerts, events.ReconciliationAlert{
				Kind:          events.AlertTransactionWithoutOrderPaid,
				OrderID:       orderID,
				TransactionID: transactions[0].ID,
				Detail:        fmt.Sprintf("transaction %s is completed but order %d is not paid", transactions[0].ID, orderID),
				DetectedAt:    time.Now(),
			})
		}

		if len(transactions) > 1 {
			ids := make([]string, 0, len(transactions))
			for _, transaction := range transactions {
				ids = append(ids, transaction.ID)
			}

			alerts = append(alerts, events.ReconciliationAlert{
				Kind:          events.AlertDuplicateCompletedTransactions,
				OrderID:       orderID,
				TransactionID: transactions[0].ID,
				Detail:        fmt.Sprintf("order %d has %d completed transactions: %s", orderID, len(transactions), strings.Join(ids, ", ")),
				DetectedAt:    time.Now(),
			})
		}
	}

	return alerts, nil
}

func completedOf(transactions []model.Transaction) []model.Transaction {
	var completed []model.Transaction
	for _, transaction := range transactions {
		if transaction.Status == model.TransactionStatusCompleted {
			completed = append(completed, transaction)
		}
	}

	return completed
}
