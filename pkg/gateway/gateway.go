package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Name string

const (
	MobileMoney Name = "MOBILE_MONEY"
	Card        Name = "CARD"
)

// Outcome is the gateway-reported fate of a payment attempt, already
// mapped from the gateway's own result codes.
type Outcome string

const (
	OutcomePending   Outcome = "PENDING"
	OutcomeCompleted Outcome = "COMPLETED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeCancelled Outcome = "CANCELLED"
	OutcomeExpired   Outcome = "EXPIRED"
)

type Client interface {
	Name() Name
	Submit(ctx context.Context, intent PaymentIntent) (SubmissionResult, error)
	QueryStatus(ctx context.Context, trackingID string) (StatusResult, error)
}

type PaymentIntent struct {
	MerchantReference string
	Amount            decimal.Decimal
	Currency          string
	PhoneNumber       string
	Email             string
	FirstName         string
	LastName          string
	Description       string
}

// SubmissionResult is the gateway's acceptance of a payment request.
// RedirectURL is set only by gateways that collect the instrument on a
// hosted page.
type SubmissionResult struct {
	TrackingID  string
	RedirectURL string
	Description string
	RawResponse []byte
}

type StatusResult struct {
	Outcome          Outcome
	ResultCode       string
	Description      string
	ConfirmationCode string
	CompletedAt      *time.Time
	RawResponse      []byte
}

// Callback is a parsed inbound webhook delivery. HasOutcome is false for
// gateways whose notifications carry no result code; the processor must
// query the gateway for the outcome instead.
type Callback struct {
	Gateway           Name
	TrackingID        string
	MerchantReference string
	HasOutcome        bool
	Outcome           Outcome
	ResultCode        string
	Description       string
	ConfirmationCode  string
	Amount            decimal.Decimal
	CompletedAt       *time.Time
}
