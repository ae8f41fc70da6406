package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dukapay/payments/pkg/gateway"
	"github.com/shopspring/decimal"
)

type callbackEnvelope struct {
	Body struct {
		StkCallback stkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// Ack is the acknowledgement body the gateway expects back for a
// callback delivery.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func AcceptedAck() Ack {
	return Ack{ResultCode: 0, ResultDesc: "Accepted"}
}

type stkCallback struct {
	MerchantRequestID string           `json:"MerchantRequestID"`
	CheckoutRequestID string           `json:"CheckoutRequestID"`
	ResultCode        *int             `json:"ResultCode"`
	ResultDesc        string           `json:"ResultDesc"`
	CallbackMetadata  callbackMetadata `json:"CallbackMetadata"`
}

type callbackMetadata struct {
	Item []metadataItem `json:"Item"`
}

type metadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// ParseCallback maps an STK push result notification into the shared
// callback shape. CheckoutRequestID and ResultCode are required; a
// payload without them cannot be resolved to a transaction and is
// rejected rather than defaulted.
func ParseCallback(payload []byte) (gateway.Callback, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return gateway.Callback{}, fmt.Errorf("%w: decoding callback: %v", gateway.ErrMalformedResponse, err)
	}

	stk := envelope.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return gateway.Callback{}, fmt.Errorf("%w: callback missing CheckoutRequestID", gateway.ErrMalformedResponse)
	}
	if stk.ResultCode == nil {
		return gateway.Callback{}, fmt.Errorf("%w: callback missing ResultCode", gateway.ErrMalformedResponse)
	}

	code := strconv.Itoa(*stk.ResultCode)
	callback := gateway.Callback{
		Gateway:     gateway.MobileMoney,
		TrackingID:  stk.CheckoutRequestID,
		HasOutcome:  true,
		Outcome:     OutcomeForResultCode(code),
		ResultCode:  code,
		Description: stk.ResultDesc,
	}

	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if receipt, ok := item.Value.(string); ok {
				callback.ConfirmationCode = receipt
			}
		case "Amount":
			if amount, ok := item.Value.(float64); ok {
				callback.Amount = decimal.NewFromFloat(amount)
			}
		case "TransactionDate":
			if raw, ok := item.Value.(float64); ok {
				completedAt, err := time.ParseInLocation(timestampLayout, strconv.FormatInt(int64(raw), 10), time.Local)
				if err == nil {
					callback.CompletedAt = &completedAt
				}
			}
		}
	}

	return callback, nil
}
