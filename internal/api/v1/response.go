package v1

import "github.com/dukapay/payments/internal/service"

type ListPaymentsResponse struct {
	Payments []service.TransactionView `json:"payments"`
	Total    int                       `json:"total"`
}
