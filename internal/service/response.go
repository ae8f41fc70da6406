package service

import (
	"time"

	"github.com/dukapay/payments/internal/model"
)

type SubmitPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	TrackingID    string `json:"tracking_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`

	// Replayed marks a duplicate merchant reference served from the
	// stored row. The handler answers 200 instead of 201.
	Replayed bool `json:"-"`
}

type TransactionView struct {
	TransactionID     string `json:"transaction_id"`
	MerchantReference string `json:"merchant_reference"`
	OrderID           int64  `json:"order_id"`
	Gateway           string `json:"gateway"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	TrackingID        string `json:"tracking_id,omitempty"`
	ConfirmationCode  string `json:"confirmation_code,omitempty"`
	RedirectURL       string `json:"redirect_url,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	TransactionDate   string `json:"transaction_date,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func NewTransactionView(transaction *model.Transaction) TransactionView {
	view := TransactionView{
		TransactionID:     transaction.ID,
		MerchantReference: transaction.MerchantReference,
		OrderID:           transaction.OrderID,
		Gateway:           string(transaction.Gateway),
		Amount:            transaction.Amount.StringFixed(2),
		Currency:          transaction.Currency,
		Status:            string(transaction.Status),
		CreatedAt:         transaction.CreatedAt.Format(time.RFC3339),
	}

	if transaction.GatewayTrackingID != nil {
		view.TrackingID = *transaction.GatewayTrackingID
	}
	if transaction.ConfirmationCode != nil {
		view.ConfirmationCode = *transaction.ConfirmationCode
	}
	if transaction.RedirectURL != nil {
		view.RedirectURL = *transaction.RedirectURL
	}
	if transaction.ErrorMessage != nil {
		view.ErrorMessage = *transaction.ErrorMessage
	}
	if transaction.TransactionDate != nil {
		view.TransactionDate = transaction.TransactionDate.Format(time.RFC3339)
	}

	return view
}
