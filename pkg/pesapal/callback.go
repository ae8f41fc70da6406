package pesapal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dukapay/payments/pkg/gateway"
)

const notificationTypeChange = "IPNCHANGE"

// ipnNotification is the payload delivered when a transaction changes
// state at the gateway. It carries no outcome, only the pointer to go
// and ask.
type ipnNotification struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType"`
}

func ParseIPN(payload []byte) (gateway.Callback, error) {
	var notification ipnNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		return gateway.Callback{}, fmt.Errorf("%w: decoding IPN: %v", gateway.ErrMalformedResponse, err)
	}

	if notification.OrderTrackingID == "" {
		return gateway.Callback{}, fmt.Errorf("%w: IPN missing OrderTrackingId", gateway.ErrMalformedResponse)
	}

	return gateway.Callback{
		Gateway:           gateway.Card,
		TrackingID:        notification.OrderTrackingID,
		MerchantReference: notification.OrderMerchantReference,
		HasOutcome:        false,
	}, nil
}

// Ack is the acknowledgement body the gateway expects back for an IPN.
type Ack struct {
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}

func AckFor(callback gateway.Callback) Ack {
	return Ack{
		OrderNotificationType:  notificationTypeChange,
		OrderTrackingID:        callback.TrackingID,
		OrderMerchantReference: callback.MerchantReference,
		Status:                 http.StatusOK,
	}
}
