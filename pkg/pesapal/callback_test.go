package pesapal_test

import (
	"testing"

	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/pesapal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIPN(t *testing.T) {
	payload := []byte(`{
		"OrderTrackingId": "b945e4af-80a5-4ec1-8706-e03f8332fb04",
		"OrderMerchantReference": "ORDER-R2",
		"OrderNotificationType": "IPNCHANGE"
	}`)

	callback, err := pesapal.ParseIPN(payload)
	require.NoError(t, err)

	assert.Equal(t, gateway.Card, callback.Gateway)
	assert.Equal(t, "b945e4af-80a5-4ec1-8706-e03f8332fb04", callback.TrackingID)
	assert.Equal(t, "ORDER-R2", callback.MerchantReference)
	assert.False(t, callback.HasOutcome)
}

func TestParseIPNMissingTrackingID(t *testing.T) {
	payload := []byte(`{"OrderMerchantReference": "ORDER-R2", "OrderNotificationType": "IPNCHANGE"}`)

	_, err := pesapal.ParseIPN(payload)
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
}

func TestParseIPNInvalidJSON(t *testing.T) {
	_, err := pesapal.ParseIPN([]byte(`OrderTrackingId=b945e4af`))
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
}

func TestAckForEchoesNotification(t *testing.T) {
	callback := gateway.Callback{
		Gateway:           gateway.Card,
		TrackingID:        "b945e4af-80a5-4ec1-8706-e03f8332fb04",
		MerchantReference: "ORDER-R2",
	}

	ack := pesapal.AckFor(callback)

	assert.Equal(t, "IPNCHANGE", ack.OrderNotificationType)
	assert.Equal(t, "b945e4af-80a5-4ec1-8706-e03f8332fb04", ack.OrderTrackingID)
	assert.Equal(t, "ORDER-R2", ack.OrderMerchantReference)
	assert.Equal(t, 200, ack.Status)
}
