package v1

type SubmitPaymentRequest struct {
	MerchantReference string `json:"merchant_reference" validate:"required,max=64"`
	OrderID           int64  `json:"order_id" validate:"required,gt=0"`
	UserID            string `json:"user_id" validate:"required,max=64"`
	Gateway           string `json:"gateway" validate:"required,oneof=MOBILE_MONEY CARD"`
	Amount            string `json:"amount" validate:"required,amount"`
	Currency          string `json:"currency" validate:"required,currency"`
	PhoneNumber       string `json:"phone_number" validate:"omitempty,msisdn"`
	Email             string `json:"email" validate:"omitempty,email"`
	FirstName         string `json:"first_name" validate:"omitempty,max=64"`
	LastName          string `json:"last_name" validate:"omitempty,max=64"`
	Description       string `json:"description" validate:"omitempty,max=128"`
}
