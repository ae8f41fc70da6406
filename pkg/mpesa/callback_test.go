package mpesa_test

import (
	"testing"
	"time"

	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackCompleted(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 100.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	callback, err := mpesa.ParseCallback(payload)
	require.NoError(t, err)

	assert.Equal(t, gateway.MobileMoney, callback.Gateway)
	assert.Equal(t, "ws_CO_191220191020363925", callback.TrackingID)
	assert.True(t, callback.HasOutcome)
	assert.Equal(t, gateway.OutcomeCompleted, callback.Outcome)
	assert.Equal(t, "0", callback.ResultCode)
	assert.Equal(t, "NLJ7RT61SV", callback.ConfirmationCode)
	assert.True(t, callback.Amount.Equal(decimal.NewFromInt(100)))

	require.NotNil(t, callback.CompletedAt)
	expected := time.Date(2019, 12, 19, 10, 21, 15, 0, time.Local)
	assert.Equal(t, expected, *callback.CompletedAt)
}

func TestParseCallbackCancelledByUser(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`)

	callback, err := mpesa.ParseCallback(payload)
	require.NoError(t, err)

	assert.True(t, callback.HasOutcome)
	assert.Equal(t, gateway.OutcomeCancelled, callback.Outcome)
	assert.Equal(t, "1032", callback.ResultCode)
	assert.Empty(t, callback.ConfirmationCode)
	assert.Nil(t, callback.CompletedAt)
}

func TestParseCallbackTimedOut(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultCode": 1037,
				"ResultDesc": "DS timeout user cannot be reached"
			}
		}
	}`)

	callback, err := mpesa.ParseCallback(payload)
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeExpired, callback.Outcome)
}

func TestParseCallbackMissingResultCode(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_1",
				"ResultDesc": "no result code"
			}
		}
	}`)

	_, err := mpesa.ParseCallback(payload)
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
}

func TestParseCallbackMissingCheckoutRequestID(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"ResultCode": 0,
				"ResultDesc": "missing checkout request id"
			}
		}
	}`)

	_, err := mpesa.ParseCallback(payload)
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
}

func TestParseCallbackInvalidJSON(t *testing.T) {
	_, err := mpesa.ParseCallback([]byte(`{not json`))
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
}
