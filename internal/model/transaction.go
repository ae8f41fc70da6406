package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Gateway string

const (
	GatewayMobileMoney Gateway = "MOBILE_MONEY"
	GatewayCard        Gateway = "CARD"
)

type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusExpired   TransactionStatus = "EXPIRED"
)

var validTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusInitiated: {TransactionStatusPending, TransactionStatusFailed},
	TransactionStatusPending: {
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
		TransactionStatusExpired,
	},
	// no transitions out of terminal states
	TransactionStatusCompleted: {},
	TransactionStatusFailed:    {},
	TransactionStatusCancelled: {},
	TransactionStatusExpired:   {},
}

// IsValidTransition reports whether a status change is allowed.
func IsValidTransition(from, to TransactionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed,
		TransactionStatusCancelled, TransactionStatusExpired:
		return true
	}

	return false
}

type Transaction struct {
	ID                string            `gorm:"primaryKey;column:id;type:varchar(36);<-:create"`
	MerchantReference string            `gorm:"column:merchant_reference;index:idx_merchant_reference,unique;<-:create"`
	OrderID           int64             `gorm:"column:order_id;index;<-:create"`
	UserID            string            `gorm:"column:user_id;<-:create"`
	Gateway           Gateway           `gorm:"column:gateway;<-:create"`
	Amount            decimal.Decimal   `gorm:"column:amount;type:decimal(12,2);<-:create"`
	Currency          string            `gorm:"column:currency;type:varchar(3);<-:create"`
	PhoneNumber       *string           `gorm:"column:phone_number"`
	Email             *string           `gorm:"column:email"`
	Status            TransactionStatus `gorm:"column:status;type:varchar(16);index"`
	GatewayTrackingID *string           `gorm:"column:gateway_tracking_id;index:idx_gateway_tracking_id"`
	ConfirmationCode  *string           `gorm:"column:confirmation_code"`
	RedirectURL       *string           `gorm:"column:redirect_url"`
	RetryCount        int               `gorm:"column:retry_count;default:0"`
	GatewayResponse   []byte            `gorm:"column:gateway_response;type:json"`
	CallbackResponse  []byte            `gorm:"column:callback_response;type:json"`
	ErrorMessage      *string           `gorm:"column:error_message;type:text"`
	TransactionDate   *time.Time        `gorm:"column:transaction_date"`
	LastCheckedAt     *time.Time        `gorm:"column:last_checked_at"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at"`
}
