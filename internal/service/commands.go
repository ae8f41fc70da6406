package service

import "github.com/shopspring/decimal"

type SubmitPaymentCommand struct {
	MerchantReference string
	OrderID           int64
	UserID            string
	Gateway           string
	Amount            decimal.Decimal
	Currency          string
	PhoneNumber       string
	Email             string
	FirstName         string
	LastName          string
	Description       string
}
