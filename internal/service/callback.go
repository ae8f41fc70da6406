package service

import (
	"context"
	"errors"
	"time"

	"github.com/dukapay/payments/internal/constants"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/repository"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/dukapay/payments/pkg/pesapal"
	"go.uber.org/zap"
)

type CallbackService interface {
	Process(ctx context.Context, gw model.Gateway, payload []byte) error
}

type callback struct {
	transactionRepo repository.TransactionRepository
	registry        *GatewayRegistry
	transitions     TransitionService
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewCallbackService(transactionRepo repository.TransactionRepository, registry *GatewayRegistry,
	transitions TransitionService, metrics *metrics.Metrics, logger *zap.Logger) CallbackService {
	return &callback{
		transactionRepo: transactionRepo,
		registry:        registry,
		transitions:     transitions,
		metrics:         metrics,
		logger:          logger,
	}
}

// Process applies an inbound gateway notification to the transaction it
// references. Redeliveries and notifications for finished transactions
// change nothing. A tracking ID we never issued is logged and dropped,
// never turned into a new transaction.
func (c *callback) Process(ctx context.Context, gw model.Gateway, payload []byte) error {
	parsed, err := c.parse(gw, payload)
	if err != nil {
		c.metrics.RecordCallback(string(gw), "malformed")
		c.logger.Warn("Failed to parse gateway callback",
			zap.String("gateway", string(gw)),
			zap.ByteString("payload", payload),
			zap.Error(err))
		return NewServiceError(constants.ErrCodeInvalidRequestBody, err)
	}

	transaction, err := c.transactionRepo.GetByTrackingID(parsed.TrackingID)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		c.metrics.RecordCallback(string(gw), "unmatched")
		c.logger.Warn("Callback for unknown tracking ID",
			zap.String("gateway", string(gw)),
			zap.String("trackingID", parsed.TrackingID))
		return ErrTransactionNotFound
	}
	if err != nil {
		return NewServiceError(ErrCodeDatabase, err)
	}

	if transaction.Status.Terminal() {
		c.metrics.RecordCallback(string(gw), "duplicate")
		c.logger.Info("Callback for finished transaction ignored",
			zap.String("transactionID", transaction.ID),
			zap.String("status", string(transaction.Status)))
		return ErrDuplicateCallback
	}

	outcome, update, err := c.resolve(ctx, transaction, parsed, payload)
	if err != nil {
		return err
	}

	if outcome == gateway.OutcomePending {
		c.metrics.RecordCallback(string(gw), "pending")
		c.logger.Info("Callback reports transaction still pending",
			zap.String("transactionID", transaction.ID))
		return nil
	}

	target, ok := statusForOutcome(outcome)
	if !ok {
		c.metrics.RecordCallback(string(gw), "malformed")
		return NewServiceError(constants.ErrCodeInternalError,
			errors.New("gateway reported an unknown outcome"))
	}

	applied, err := c.transitions.Apply(ctx, transaction, target, update)
	if err != nil {
		return err
	}
	if !applied {
		c.metrics.RecordCallback(string(gw), "duplicate")
		return ErrDuplicateCallback
	}

	c.metrics.RecordCallback(string(gw), "applied")
	c.logger.Info("Callback applied",
		zap.String("transactionID", transaction.ID),
		zap.String("status", string(target)))

	return nil
}

func (c *callback) parse(gw model.Gateway, payload []byte) (gateway.Callback, error) {
	switch gw {
	case model.GatewayMobileMoney:
		return mpesa.ParseCallback(payload)
	case model.GatewayCard:
		return pesapal.ParseIPN(payload)
	default:
		return gateway.Callback{}, ErrUnknownGateway
	}
}

// resolve produces the outcome and row update for a parsed callback.
// Notifications without an embedded result are resolved by querying the
// gateway for the authoritative status.
func (c *callback) resolve(ctx context.Context, transaction *model.Transaction,
	parsed gateway.Callback, payload []byte) (gateway.Outcome, TransitionUpdate, error) {
	update := TransitionUpdate{CallbackResponse: payload}

	if parsed.HasOutcome {
		applyOutcomeDetails(&update, parsed.Outcome, parsed.ConfirmationCode, parsed.Description, parsed.CompletedAt)
		return parsed.Outcome, update, nil
	}

	client, err := c.registry.ClientFor(transaction.Gateway)
	if err != nil {
		return "", update, NewServiceError(constants.ErrCodeUnknownGateway, err)
	}

	start := time.Now()
	status, err := client.QueryStatus(ctx, parsed.TrackingID)
	c.metrics.ObserveGatewayRequest(string(transaction.Gateway), "query", time.Since(start))
	if err != nil {
		c.metrics.RecordCallback(string(transaction.Gateway), "query_failed")
		c.logger.Warn("Status query for callback failed",
			zap.String("transactionID", transaction.ID),
			zap.Error(err))
		code, _ := classifySubmissionError(err)
		return "", update, NewServiceError(code, err)
	}

	applyOutcomeDetails(&update, status.Outcome, status.ConfirmationCode, status.Description, status.CompletedAt)

	return status.Outcome, update, nil
}

func applyOutcomeDetails(update *TransitionUpdate, outcome gateway.Outcome,
	confirmationCode, description string, completedAt *time.Time) {
	if confirmationCode != "" {
		code := confirmationCode
		update.ConfirmationCode = &code
	}
	if completedAt != nil {
		update.TransactionDate = completedAt
	}
	if outcome != gateway.OutcomeCompleted && outcome != gateway.OutcomePending && description != "" {
		message := description
		update.ErrorMessage = &message
	}
}

func statusForOutcome(outcome gateway.Outcome) (model.TransactionStatus, bool) {
	switch outcome {
	case gateway.OutcomeCompleted:
		return model.TransactionStatusCompleted, true
	case gateway.OutcomeFailed:
		return model.TransactionStatusFailed, true
	case gateway.OutcomeCancelled:
		return model.TransactionStatusCancelled, true
	case gateway.OutcomeExpired:
		return model.TransactionStatusExpired, true
	default:
		return "", false
	}
}
