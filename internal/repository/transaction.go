package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dukapay/payments/internal/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrTransactionNotFound = errors.New("TRANSACTION_NOT_FOUND")
var ErrTransactionDuplicate = errors.New("TRANSACTION_DUPLICATE")
var ErrNoRowsAffected = errors.New("NO_ROWS_AFFECTED")

type TransactionRepository interface {
	Create(ctx context.Context, transaction *model.Transaction) error
	UpdateStatus(ctx context.Context, transaction *model.Transaction, from []model.TransactionStatus) error
	RecordCheck(ctx context.Context, id string, at time.Time) error
	GetByID(id string) (*model.Transaction, error)
	GetByMerchantReference(reference string) (*model.Transaction, error)
	GetByTrackingID(trackingID string) (*model.Transaction, error)
	ListByOrderID(orderID int64) ([]model.Transaction, error)
	FindPendingOlderThan(cutoff time.Time, limit int) ([]model.Transaction, error)
	FindCompletedSince(since time.Time) ([]model.Transaction, error)
}

type Transaction struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &Transaction{db: db}
}

// Create inserts the row that reserves the merchant reference. The
// unique index turns a concurrent double submit into a duplicate error
// instead of a second row.
func (t *Transaction) Create(ctx context.Context, transaction *model.Transaction) error {
	db := GetTx(ctx, t.db)
	err := db.Create(transaction).Error
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return ErrTransactionDuplicate
	}

	return err
}

// UpdateStatus applies the change only while the row is still in one of
// the expected statuses. A stale caller gets ErrNoRowsAffected and must
// not treat the transition as applied.
func (t *Transaction) UpdateStatus(ctx context.Context, transaction *model.Transaction, from []model.TransactionStatus) error {
	db := GetTx(ctx, t.db)
	result := db.Model(transaction).
		Where("id = ? AND status IN ?", transaction.ID, from).
		Updates(transaction)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

// RecordCheck bumps the poll counter without touching business fields.
func (t *Transaction) RecordCheck(ctx context.Context, id string, at time.Time) error {
	db := GetTx(ctx, t.db)
	result := db.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TransactionStatusPending).
		UpdateColumns(map[string]interface{}{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_checked_at": at,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (t *Transaction) GetByID(id string) (*model.Transaction, error) {
	var transaction model.Transaction

	err := t.db.Where("id = ?", id).First(&transaction).Error
	if err == nil {
		return &transaction, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}

	return nil, err
}

func (t *Transaction) GetByMerchantReference(reference string) (*model.Transaction, error) {
	var transaction model.Transaction

	err := t.db.Where("merchant_reference = ?", reference).First(&transaction).Error
	if err == nil {
		return &transaction, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}

	return nil, err
}

func (t *Transaction) GetByTrackingID(trackingID string) (*model.Transaction, error) {
	var transaction model.Transaction

	err := t.db.Where("gateway_tracking_id = ?", trackingID).First(&transaction).Error
	if err == nil {
		return &transaction, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}

	return nil, err
}

func (t *Transaction) ListByOrderID(orderID int64) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := t.db.Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (t *Transaction) FindPendingOlderThan(cutoff time.Time, limit int) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := t.db.Where("status = ? AND created_at <= ?", model.TransactionStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (t *Transaction) FindCompletedSince(since time.Time) ([]model.Transaction, error) {
	var transactions []model.Transaction

	err := t.db.Where("status = ? AND updated_at >= ?", model.TransactionStatusCompleted, since).
		Order("updated_at ASC").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
