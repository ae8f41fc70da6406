package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
	PaymentStatusRefundPending PaymentStatus = "REFUND_PENDING"
)

type Order struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id;<-:create"`
	UserID        string          `gorm:"column:user_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2)"`
	Currency      string          `gorm:"column:currency;type:varchar(3)"`
	PaymentStatus PaymentStatus   `gorm:"column:payment_status"`
	PaidAt        *time.Time      `gorm:"column:paid_at"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}
