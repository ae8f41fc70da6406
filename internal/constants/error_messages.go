package constants

const (
	ErrCodeInvalidRequestBody  = "INVALID_REQUEST_BODY"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeAmountMismatch      = "AMOUNT_MISMATCH"
	ErrCodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	ErrCodeInvalidPhoneNumber  = "INVALID_PHONE_NUMBER"
	ErrCodeUnknownGateway      = "UNKNOWN_GATEWAY"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeGatewayRejected     = "GATEWAY_REJECTED"
	ErrCodeGatewayTimeout      = "GATEWAY_TIMEOUT"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

const (
	ErrMsgInvalidRequestBody  = "failed to parse request body"
	ErrMsgInvalidAmount       = "amount must be a positive value within the gateway limits"
	ErrMsgAmountMismatch      = "amount does not match the order total"
	ErrMsgUnsupportedCurrency = "currency is not supported by the selected gateway"
	ErrMsgInvalidPhoneNumber  = "phone number is not a valid subscriber number"
	ErrMsgUnknownGateway      = "unknown payment gateway"
	ErrMsgOrderNotFound       = "order not found"
	ErrMsgTransactionNotFound = "transaction not found"
	ErrMsgGatewayRejected     = "payment request rejected by the gateway"
	ErrMsgGatewayTimeout      = "payment gateway timed out"
	ErrMsgGatewayUnavailable  = "payment gateway unavailable"
	ErrMsgInternalError       = "Internal server error"
)

var errorMessages = map[string]string{
	ErrCodeInvalidRequestBody:  ErrMsgInvalidRequestBody,
	ErrCodeInvalidAmount:       ErrMsgInvalidAmount,
	ErrCodeAmountMismatch:      ErrMsgAmountMismatch,
	ErrCodeUnsupportedCurrency: ErrMsgUnsupportedCurrency,
	ErrCodeInvalidPhoneNumber:  ErrMsgInvalidPhoneNumber,
	ErrCodeUnknownGateway:      ErrMsgUnknownGateway,
	ErrCodeOrderNotFound:       ErrMsgOrderNotFound,
	ErrCodeTransactionNotFound: ErrMsgTransactionNotFound,
	ErrCodeGatewayRejected:     ErrMsgGatewayRejected,
	ErrCodeGatewayTimeout:      ErrMsgGatewayTimeout,
	ErrCodeGatewayUnavailable:  ErrMsgGatewayUnavailable,
	ErrCodeInternalError:       ErrMsgInternalError,
}

func GetErrorMessage(code string) string {
	if msg, exists := errorMessages[code]; exists {
		return msg
	}
	return ErrMsgInternalError
}

func GetHTTPStatus(code string) int {
	switch code {
	case ErrCodeInvalidRequestBody, ErrCodeInvalidAmount, ErrCodeAmountMismatch,
		ErrCodeUnsupportedCurrency, ErrCodeInvalidPhoneNumber, ErrCodeUnknownGateway:
		return 400
	case ErrCodeOrderNotFound, ErrCodeTransactionNotFound:
		return 404
	case ErrCodeGatewayRejected:
		return 422
	case ErrCodeGatewayTimeout:
		return 504
	case ErrCodeGatewayUnavailable:
		return 502
	case ErrCodeInternalError:
		return 500
	default:
		return 500
	}
}
