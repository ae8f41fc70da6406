package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukapay/payments/internal/config"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/repository"
	"github.com/dukapay/payments/pkg/gateway"
	"go.uber.org/zap"
)

const (
	defaultPollerBatchSize = 100
	defaultPollerMaxChecks = 5
	defaultPollerMinAge    = time.Minute
)

// PollerService resolves transactions whose callback never arrived. Each
// sweep queries the gateway for pending transactions old enough to be
// suspicious and expires the ones that stay unresolved past the check
// budget.
type PollerService interface {
	Sweep(ctx context.Context) error
}

type poller struct {
	transactionRepo repository.TransactionRepository
	registry        *GatewayRegistry
	transitions     TransitionService
	config          config.Poller
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewPollerService(transactionRepo repository.TransactionRepository, registry *GatewayRegistry,
	transitions TransitionService, cfg *config.Config, metrics *metrics.Metrics, logger *zap.Logger) PollerService {
	pollerConfig := cfg.Poller
	if pollerConfig.BatchSize <= 0 {
		pollerConfig.BatchSize = defaultPollerBatchSize
	}
	if pollerConfig.MaxChecks <= 0 {
		pollerConfig.MaxChecks = defaultPollerMaxChecks
	}
	if pollerConfig.MinAge <= 0 {
		pollerConfig.MinAge = defaultPollerMinAge
	}

	return &poller{
		transactionRepo: transactionRepo,
		registry:        registry,
		transitions:     transitions,
		config:          pollerConfig,
		metrics:         metrics,
		logger:          logger,
	}
}

func (p *poller) Sweep(ctx context.Context) error {
	p.metrics.RecordPollerSweep()

	cutoff := time.Now().Add(-p.config.MinAge)
	pending, err := p.transactionRepo.FindPendingOlderThan(cutoff, p.config.BatchSize)
	if err != nil {
		return NewServiceError(ErrCodeDatabase, err)
	}

	if len(pending) == 0 {
		return nil
	}

	p.logger.Info("Sweeping pending transactions", zap.Int("count", len(pending)))

	for i := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := p.check(ctx, &pending[i]); err != nil {
			p.logger.Error("Status check failed",
				zap.String("transactionID", pending[i].ID),
				zap.Error(err))
		}
	}

	return nil
}

func (p *poller) check(ctx context.Context, transaction *model.Transaction) error {
	if transaction.RetryCount >= p.config.MaxChecks {
		return p.expire(ctx, transaction)
	}

	if !p.due(transaction) {
		return nil
	}

	if transaction.GatewayTrackingID == nil {
		// cannot be queried; count the check so the budget still
		// runs out and the row expires
		p.recordCheck(ctx, transaction.ID)
		p.metrics.RecordPollerCheck("error")
		p.logger.Warn("Pending transaction has no tracking ID",
			zap.String("transactionID", transaction.ID))
		return nil
	}

	client, err := p.registry.ClientFor(transaction.Gateway)
	if err != nil {
		p.recordCheck(ctx, transaction.ID)
		p.metrics.RecordPollerCheck("error")
		return err
	}

	start := time.Now()
	status, err := client.QueryStatus(ctx, *transaction.GatewayTrackingID)
	p.metrics.ObserveGatewayRequest(string(transaction.Gateway), "query", time.Since(start))
	if err != nil {
		p.recordCheck(ctx, transaction.ID)
		p.metrics.RecordPollerCheck("error")
		return err
	}

	if status.Outcome == gateway.OutcomePending {
		p.recordCheck(ctx, transaction.ID)
		p.metrics.RecordPollerCheck("pending")
		return nil
	}

	target, ok := statusForOutcome(status.Outcome)
	if !ok {
		p.recordCheck(ctx, transaction.ID)
		p.metrics.RecordPollerCheck("error")
		return fmt.Errorf("gateway reported an unknown outcome %q", status.Outcome)
	}

	now := time.Now()
	update := TransitionUpdate{
		CallbackResponse: status.RawResponse,
		LastCheckedAt:    &now,
	}
	applyOutcomeDetails(&update, status.Outcome, status.ConfirmationCode, status.Description, status.CompletedAt)

	applied, err := p.transitions.Apply(ctx, transaction, target, update)
	if err != nil {
		return err
	}
	if !applied {
		p.metrics.RecordPollerCheck("duplicate")
		return nil
	}

	p.metrics.RecordPollerCheck(strings.ToLower(string(status.Outcome)))
	p.logger.Info("Pending transaction resolved by poll",
		zap.String("transactionID", transaction.ID),
		zap.String("status", string(target)))

	return nil
}

// expire gives up on a transaction that stayed pending through the whole
// check budget. The row keeps the reason so support can trace it.
func (p *poller) expire(ctx context.Context, transaction *model.Transaction) error {
	message := fmt.Sprintf("status unresolved after %d checks", transaction.RetryCount)
	now := time.Now()
	update := TransitionUpdate{
		ErrorMessage:  &message,
		LastCheckedAt: &now,
	}

	applied, err := p.transitions.Apply(ctx, transaction, model.TransactionStatusExpired, update)
	if err != nil {
		return err
	}
	if !applied {
		p.metrics.RecordPollerCheck("duplicate")
		return nil
	}

	p.metrics.RecordPollerCheck("expired")
	p.logger.Warn("Pending transaction expired",
		zap.String("transactionID", transaction.ID),
		zap.Int("checks", transaction.RetryCount))

	return nil
}

// due applies the backoff schedule between checks of the same row.
func (p *poller) due(transaction *model.Transaction) bool {
	if transaction.LastCheckedAt == nil || transaction.RetryCount == 0 {
		return true
	}

	delay := p.config.Backoff.Delay(transaction.RetryCount - 1)

	return !time.Now().Before(transaction.LastCheckedAt.Add(delay))
}

func (p *poller) recordCheck(ctx context.Context, id string) {
	err := p.transactionRepo.RecordCheck(ctx, id, time.Now())
	if err != nil && !errors.Is(err, repository.ErrNoRowsAffected) {
		p.logger.Error("Failed to record status check",
			zap.String("transactionID", id),
			zap.Error(err))
	}
}
