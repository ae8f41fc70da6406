package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dukapay/payments/internal/constants"
	"github.com/dukapay/payments/internal/metrics"
	"github.com/dukapay/payments/internal/model"
	"github.com/dukapay/payments/internal/repository"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var msisdnPattern = regexp.MustCompile(`^254(7|1)\d{8}$`)

type PaymentService interface {
	Submit(ctx context.Context, cmd SubmitPaymentCommand) (*SubmitPaymentResponse, error)
	GetByReference(ctx context.Context, reference string) (*TransactionView, error)
	ListByOrder(ctx context.Context, orderID int64) ([]TransactionView, error)
}

type payment struct {
	transactionRepo repository.TransactionRepository
	orderRepo       repository.OrderRepository
	registry        *GatewayRegistry
	transitions     TransitionService
	limits          Limits
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewPaymentService(transactionRepo repository.TransactionRepository, orderRepo repository.OrderRepository,
	registry *GatewayRegistry, transitions TransitionService, limits Limits,
	metrics *metrics.Metrics, logger *zap.Logger) PaymentService {
	return &payment{
		transactionRepo: transactionRepo,
		orderRepo:       orderRepo,
		registry:        registry,
		transitions:     transitions,
		limits:          limits,
		metrics:         metrics,
		logger:          logger,
	}
}

// Submit accepts a payment request, reserves its merchant reference and
// hands it to the gateway. A reference seen before is replayed from the
// stored row without another gateway call.
func (p *payment) Submit(ctx context.Context, cmd SubmitPaymentCommand) (*SubmitPaymentResponse, error) {
	gw := model.Gateway(cmd.Gateway)

	client, err := p.registry.ClientFor(gw)
	if err != nil {
		return nil, NewServiceError(constants.ErrCodeUnknownGateway, err)
	}

	phone, err := p.validate(cmd, gw)
	if err != nil {
		return nil, err
	}

	order, err := p.orderRepo.GetByID(cmd.OrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, NewServiceError(constants.ErrCodeOrderNotFound, err)
	}
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	if !cmd.Amount.Equal(order.Amount) || cmd.Currency != order.Currency {
		return nil, NewServiceError(constants.ErrCodeAmountMismatch,
			fmt.Errorf("payment of %s %s does not match order %d charging %s %s",
				cmd.Amount, cmd.Currency, order.ID, order.Amount, order.Currency))
	}

	now := time.Now()
	transaction := model.Transaction{
		ID:                uuid.NewString(),
		MerchantReference: cmd.MerchantReference,
		OrderID:           cmd.OrderID,
		UserID:            cmd.UserID,
		Gateway:           gw,
		Amount:            cmd.Amount,
		Currency:          cmd.Currency,
		Status:            model.TransactionStatusInitiated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if phone != "" {
		transaction.PhoneNumber = &phone
	}
	if cmd.Email != "" {
		email := cmd.Email
		transaction.Email = &email
	}

	err = p.transactionRepo.Create(ctx, &transaction)
	if errors.Is(err, repository.ErrTransactionDuplicate) {
		return p.replay(cmd.MerchantReference, gw)
	}
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	p.logger.Info("Payment accepted",
		zap.String("transactionID", transaction.ID),
		zap.String("merchantReference", cmd.MerchantReference),
		zap.String("gateway", string(gw)))

	intent := gateway.PaymentIntent{
		MerchantReference: cmd.MerchantReference,
		Amount:            cmd.Amount,
		Currency:          cmd.Currency,
		PhoneNumber:       phone,
		Email:             cmd.Email,
		FirstName:         cmd.FirstName,
		LastName:          cmd.LastName,
		Description:       cmd.Description,
	}

	start := time.Now()
	result, err := client.Submit(ctx, intent)
	p.metrics.ObserveGatewayRequest(string(gw), "submit", time.Since(start))

	if err != nil {
		return nil, p.failSubmission(ctx, &transaction, err)
	}

	update := TransitionUpdate{
		TrackingID:      &result.TrackingID,
		GatewayResponse: result.RawResponse,
	}
	if result.RedirectURL != "" {
		redirect := result.RedirectURL
		update.RedirectURL = &redirect
	}

	applied, err := p.transitions.Apply(ctx, &transaction, model.TransactionStatusPending, update)
	if err != nil {
		return nil, err
	}
	if !applied {
		// a callback for the tracking ID beat us to the row
		refreshed, err := p.transactionRepo.GetByID(transaction.ID)
		if err != nil {
			return nil, NewServiceError(ErrCodeDatabase, err)
		}
		transaction = *refreshed
	}

	p.metrics.RecordSubmission(string(gw), "accepted")

	return &SubmitPaymentResponse{
		TransactionID: transaction.ID,
		Status:        string(transaction.Status),
		TrackingID:    result.TrackingID,
		RedirectURL:   result.RedirectURL,
	}, nil
}

func (p *payment) GetByReference(ctx context.Context, reference string) (*TransactionView, error) {
	transaction, err := p.transactionRepo.GetByMerchantReference(reference)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, NewServiceError(constants.ErrCodeTransactionNotFound, err)
	}
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	view := NewTransactionView(transaction)

	return &view, nil
}

func (p *payment) ListByOrder(ctx context.Context, orderID int64) ([]TransactionView, error) {
	if _, err := p.orderRepo.GetByID(orderID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NewServiceError(constants.ErrCodeOrderNotFound, err)
		}
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	transactions, err := p.transactionRepo.ListByOrderID(orderID)
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	views := make([]TransactionView, 0, len(transactions))
	for i := range transactions {
		views = append(views, NewTransactionView(&transactions[i]))
	}

	return views, nil
}

// validate applies the per-gateway acceptance rules and returns the
// normalized phone number for gateways that charge a mobile subscriber.
func (p *payment) validate(cmd SubmitPaymentCommand, gw model.Gateway) (string, error) {
	if !cmd.Amount.IsPositive() {
		return "", NewServiceError(constants.ErrCodeInvalidAmount,
			fmt.Errorf("amount %s must be greater than zero", cmd.Amount))
	}

	limits, ok := p.limits[gw]
	if !ok {
		return "", NewServiceError(constants.ErrCodeUnknownGateway,
			fmt.Errorf("no limits configured for gateway %q", gw))
	}

	if !limits.allowsCurrency(cmd.Currency) {
		return "", NewServiceError(constants.ErrCodeUnsupportedCurrency,
			fmt.Errorf("currency %q is not supported by gateway %q", cmd.Currency, gw))
	}

	if !limits.allowsAmount(cmd.Amount) {
		return "", NewServiceError(constants.ErrCodeInvalidAmount,
			fmt.Errorf("amount %s is outside the accepted range for gateway %q", cmd.Amount, gw))
	}

	if !limits.RequiresPhone {
		return "", nil
	}

	phone, err := normalizeMSISDN(cmd.PhoneNumber)
	if err != nil {
		return "", NewServiceError(constants.ErrCodeInvalidPhoneNumber, err)
	}

	return phone, nil
}

// replay serves a duplicate merchant reference from the existing row.
// The stored transaction is returned exactly as it is, whatever status
// it has reached since the first submission.
func (p *payment) replay(reference string, gw model.Gateway) (*SubmitPaymentResponse, error) {
	existing, err := p.transactionRepo.GetByMerchantReference(reference)
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	p.logger.Info("Duplicate submission replayed",
		zap.String("transactionID", existing.ID),
		zap.String("merchantReference", reference),
		zap.String("status", string(existing.Status)))
	p.metrics.RecordSubmission(string(gw), "replayed")

	response := &SubmitPaymentResponse{
		TransactionID: existing.ID,
		Status:        string(existing.Status),
		Replayed:      true,
	}
	if existing.GatewayTrackingID != nil {
		response.TrackingID = *existing.GatewayTrackingID
	}
	if existing.RedirectURL != nil {
		response.RedirectURL = *existing.RedirectURL
	}

	return response, nil
}

// failSubmission records the gateway's refusal on the transaction row
// and maps the failure to an API error code. Transient errors arrive
// here only after the retry budget is spent.
func (p *payment) failSubmission(ctx context.Context, transaction *model.Transaction, cause error) error {
	message := cause.Error()
	update := TransitionUpdate{ErrorMessage: &message}

	if _, err := p.transitions.Apply(ctx, transaction, model.TransactionStatusFailed, update); err != nil {
		p.logger.Error("Failed to record gateway failure",
			zap.String("transactionID", transaction.ID),
			zap.Error(err))
	}

	code, outcome := classifySubmissionError(cause)
	p.metrics.RecordSubmission(string(transaction.Gateway), outcome)

	p.logger.Warn("Gateway refused payment",
		zap.String("transactionID", transaction.ID),
		zap.String("gateway", string(transaction.Gateway)),
		zap.String("outcome", outcome),
		zap.Error(cause))

	return NewServiceError(code, cause)
}

func classifySubmissionError(err error) (code string, outcome string) {
	switch {
	case errors.Is(err, gateway.ErrRejected):
		return constants.ErrCodeGatewayRejected, "rejected"
	case errors.Is(err, gateway.ErrTimeout):
		return constants.ErrCodeGatewayTimeout, "timeout"
	case errors.Is(err, gateway.ErrUnavailable):
		return constants.ErrCodeGatewayUnavailable, "unavailable"
	case errors.Is(err, gateway.ErrAuthFailed), errors.Is(err, gateway.ErrAuthExpired):
		return constants.ErrCodeGatewayUnavailable, "auth_failed"
	default:
		return constants.ErrCodeInternalError, "error"
	}
}

// normalizeMSISDN rewrites a subscriber number to the 254XXXXXXXXX form
// the mobile money gateway requires.
func normalizeMSISDN(phone string) (string, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(phone), "+")

	switch {
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = "254" + digits[1:]
	case len(digits) == 9:
		digits = "254" + digits
	}

	if !msisdnPattern.MatchString(digits) {
		return "", fmt.Errorf("phone number %q is not a valid subscriber number", phone)
	}

	return digits, nil
}
