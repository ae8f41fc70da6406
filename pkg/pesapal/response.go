package pesapal

// apiError is the error object embedded in every response. The gateway
// sometimes sends it as null and sometimes as an object with null
// members, so presence alone does not mean failure.
type apiError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (e *apiError) isSet() bool {
	return e != nil && (e.Code != "" || e.Message != "" || e.ErrorType != "")
}

type tokenResponse struct {
	Token      string    `json:"token"`
	ExpiryDate string    `json:"expiryDate"`
	Error      *apiError `json:"error"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
}

type submitOrderResponse struct {
	OrderTrackingID   string    `json:"order_tracking_id"`
	MerchantReference string    `json:"merchant_reference"`
	RedirectURL       string    `json:"redirect_url"`
	Error             *apiError `json:"error"`
	Status            string    `json:"status"`
}

type transactionStatusResponse struct {
	PaymentMethod            string    `json:"payment_method"`
	Amount                   float64   `json:"amount"`
	CreatedDate              string    `json:"created_date"`
	ConfirmationCode         string    `json:"confirmation_code"`
	PaymentStatusDescription string    `json:"payment_status_description"`
	Description              string    `json:"description"`
	PaymentAccount           string    `json:"payment_account"`
	MerchantReference        string    `json:"merchant_reference"`
	Currency                 string    `json:"currency"`
	StatusCode               int       `json:"status_code"`
	Error                    *apiError `json:"error"`
	Status                   string    `json:"status"`
}
