package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dukapay/payments/internal/model"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("ORDER_NOT_FOUND")

type OrderRepository interface {
	GetByID(id int64) (*model.Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus, paidAt time.Time) error
	FindPaidSince(since time.Time) ([]model.Order, error)
}

type Order struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &Order{db: db}
}

func (o *Order) GetByID(id int64) (*model.Order, error) {
	var order model.Order

	err := o.db.Where("id = ?", id).First(&order).Error
	if err == nil {
		return &order, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}

	return nil, err
}

func (o *Order) UpdatePaymentStatus(ctx context.Context, id int64, status model.PaymentStatus, paidAt time.Time) error {
	db := GetTx(ctx, o.db)
	return db.Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_status": status,
			"paid_at":        paidAt,
		}).Error
}

func (o *Order) FindPaidSince(since time.Time) ([]model.Order, error) {
	var orders []model.Order

	err := o.db.Where("payment_status = ? AND updated_at >= ?", model.PaymentStatusPaid, since).
		Order("updated_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}
