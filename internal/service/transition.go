package service

import (
	"context"
	"errors"
	"time"

	"github.com/dukapay/payments/internal/events"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/repository"
	"go.uber.org/zap"
)

// errTransitionLost aborts the enclosing database transaction when the
// guarded update matched no row.
var errTransitionLost = errors.New("transition lost")

// TransitionUpdate carries the fields recorded together with a status
// change. Nil fields are left untouched.
type TransitionUpdate struct {
	TrackingID       *string
	RedirectURL      *string
	ConfirmationCode *string
	ErrorMessage     *string
	GatewayResponse  []byte
	CallbackResponse []byte
	TransactionDate  *time.Time
	LastCheckedAt    *time.Time
}

// TransitionService is the single path through which a transaction
// changes status. Submission, callbacks and the poller all apply their
// changes here so the state machine guard, the paid write-through and
// the event emission cannot diverge.
type TransitionService interface {
	Apply(ctx context.Context, transaction *model.Transaction, target model.TransactionStatus, update TransitionUpdate) (bool, error)
}

type transition struct {
	transactionRepo repository.TransactionRepository
	orderRepo       repository.OrderRepository
	txManager       repository.TxManager
	publisher       events.Publisher
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewTransitionService(transactionRepo repository.TransactionRepository, orderRepo repository.OrderRepository,
	txManager repository.TxManager, publisher events.Publisher, metrics *metrics.Metrics, logger *zap.Logger) TransitionService {
	return &transition{
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		txManager:       txManager,
		publisher:       publisher,
		metrics:         metrics,
		logger:          logger,
	}
}

// Apply moves the transaction to target when both the state machine and
// the database row still allow it. It returns false with no error when
// the change was already applied or lost a race; callers treat that as
// a duplicate delivery, never as a failure. Exactly one domain event is
// published per applied change, after the row is committed.
func (t *transition) Apply(ctx context.Context, transaction *model.Transaction, target model.TransactionStatus, update TransitionUpdate) (bool, error) {
	from := transaction.Status

	if !model.IsValidTransition(from, target) {
		if from.Terminal() {
			t.logger.Info("Transition skipped, transaction already terminal",
				zap.String("transactionID", transaction.ID),
				zap.String("status", string(from)),
				zap.String("target", string(target)))
			return false, nil
		}

		t.logger.Warn("Transition not allowed",
			zap.String("transactionID", transaction.ID),
			zap.String("status", string(from)),
			zap.String("target", string(target)))
		return false, nil
	}

	row := model.Transaction{
		ID:                transaction.ID,
		Status:            target,
		GatewayTrackingID: update.TrackingID,
		RedirectURL:       update.RedirectURL,
		ConfirmationCode:  update.ConfirmationCode,
		ErrorMessage:      update.ErrorMessage,
		GatewayResponse:   update.GatewayResponse,
		CallbackResponse:  update.CallbackResponse,
		TransactionDate:   update.TransactionDate,
		LastCheckedAt:     update.LastCheckedAt,
		UpdatedAt:         time.Now(),
	}

	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		err := t.transactionRepo.UpdateStatus(ctx, &row, []model.TransactionStatus{from})
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return errTransitionLost
		}
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		if target == model.TransactionStatusCompleted {
			paidAt := time.Now()
			if update.TransactionDate != nil {
				paidAt = *update.TransactionDate
			}

			if err := t.orderRepo.UpdatePaymentStatus(ctx, transaction.OrderID, model.PaymentStatusPaid, paidAt); err != nil {
				return NewServiceError(ErrCodeDatabase, err)
			}
		}

		return nil
	})

	if errors.Is(err, errTransitionLost) {
		t.logger.Info("Transition lost, row changed under us",
			zap.String("transactionID", transaction.ID),
			zap.String("status", string(from)),
			zap.String("target", string(target)))
		return false, nil
	}
	if err != nil {
		t.logger.Error("Transition failed",
			zap.String("transactionID", transaction.ID),
			zap.String("target", string(target)),
			zap.Error(err))
		return false, err
	}

	t.metrics.RecordTransition(string(from), string(target))

	event := events.PaymentEvent{
		TransactionID:     transaction.ID,
		OrderID:           transaction.OrderID,
		MerchantReference: transaction.MerchantReference,
		Gateway:           transaction.Gateway,
		PreviousStatus:    from,
		NewStatus:         target,
		Amount:            transaction.Amount,
		Currency:          transaction.Currency,
		OccurredAt:        time.Now(),
	}

	if err := t.publisher.PublishPaymentEvent(ctx, event); err != nil {
		// the row is committed; the event loss is visible in logs and
		// metrics, not rolled back
		t.logger.Error("Transition committed but event publish failed",
			zap.String("transactionID", transaction.ID),
			zap.String("target", string(target)),
			zap.Error(err))
	}

	transaction.Status = target

	return true, nil
}
