package events

import (
	"time"

	"github.com/dukapay/payments/internal/model"
	"github.com/shopspring/decimal"
)

// PaymentEvent is emitted exactly once per applied status transition.
type PaymentEvent struct {
	TransactionID     string                  `json:"transaction_id"`
	OrderID           int64                   `json:"order_id"`
	MerchantReference string                  `json:"merchant_reference"`
	Gateway           model.Gateway           `json:"gateway"`
	PreviousStatus    model.TransactionStatus `json:"previous_status"`
	NewStatus         model.TransactionStatus `json:"new_status"`
	Amount            decimal.Decimal         `json:"amount"`
	Currency          string                  `json:"currency"`
	OccurredAt        time.Time               `json:"occurred_at"`
}

type AlertKind string

const (
	AlertOrderPaidWithoutTransaction    AlertKind = "ORDER_PAID_WITHOUT_TRANSACTION"
	AlertTransactionWithoutOrderPaid    AlertKind = "TRANSACTION_WITHOUT_ORDER_PAID"
	AlertDuplicateCompletedTransactions AlertKind = "DUPLICATE_COMPLETED_TRANSACTIONS"
)

// ReconciliationAlert flags a ledger mismatch for a human to resolve.
// Nothing in this system corrects the books on its own.
type ReconciliationAlert struct {
	Kind          AlertKind `json:"kind"`
	OrderID       int64     `json:"order_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Detail        string    `json:"detail"`
	DetectedAt    time.Time `json:"detected_at"`
}
