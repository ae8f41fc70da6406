package mpesa_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/httpclient"
	"github.com/dukapay/payments/pkg/mpesa"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = backoff.Policy{InitialInterval: time.Millisecond, Coefficient: 2.0, MaxRetries: 3}

type gatewayStub struct {
	tokenCalls int32
	pushCalls  int32
	queryCalls int32

	tokenStatus  int
	tokenBody    string
	pushHandler  func(calls int32, w http.ResponseWriter, r *http.Request)
	queryHandler func(calls int32, w http.ResponseWriter, r *http.Request)

	lastPushBody map[string]interface{}
	lastAuth     string
}

func (g *gatewayStub) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.tokenCalls, 1)
		status := g.tokenStatus
		if status == 0 {
			status = http.StatusOK
		}
		body := g.tokenBody
		if body == "" {
			body = `{"access_token": "test-token", "expires_in": "3599"}`
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	mux.HandleFunc(mpesa.STKPushEndpoint, func(w http.ResponseWriter, r *http.Request) {
		calls := atomic.AddInt32(&g.pushCalls, 1)
		g.lastAuth = r.Header.Get("Authorization")
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			g.lastPushBody = body
		}
		g.pushHandler(calls, w, r)
	})
	mux.HandleFunc(mpesa.STKQueryEndpoint, func(w http.ResponseWriter, r *http.Request) {
		calls := atomic.AddInt32(&g.queryCalls, 1)
		g.queryHandler(calls, w, r)
	})
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) gateway.Client {
	cfg := mpesa.Config{
		BaseURL:           serverURL,
		ConsumerKey:       "consumer-key",
		ConsumerSecret:    "consumer-secret",
		ShortCode:         "174379",
		PassKey:           "test-pass-key",
		CallbackURL:       "https://example.com/api/v1/callbacks/mpesa",
		TokenSafetyMargin: 30 * time.Second,
	}
	return mpesa.New(cfg, httpclient.NewHTTPClient(2*time.Second), testPolicy)
}

func testIntent() gateway.PaymentIntent {
	return gateway.PaymentIntent{
		MerchantReference: "ORDER-R1",
		Amount:            decimal.NewFromInt(100),
		Currency:          "KES",
		PhoneNumber:       "254712345678",
		Description:       "order payment",
	}
}

func TestSubmitSuccess(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"MerchantRequestID": "29115-34620561-1", "CheckoutRequestID": "ws_CO_191220191020363925",
				"ResponseCode": "0", "ResponseDescription": "Success. Request accepted for processing",
				"CustomerMessage": "Success. Request accepted for processing"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Submit(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", result.TrackingID)
	assert.Equal(t, int32(1), stub.tokenCalls)
	assert.Equal(t, int32(1), stub.pushCalls)
	assert.Equal(t, "Bearer test-token", stub.lastAuth)

	timestamp := stub.lastPushBody["Timestamp"].(string)
	expectedPassword := base64.StdEncoding.EncodeToString([]byte("174379" + "test-pass-key" + timestamp))
	assert.Equal(t, expectedPassword, stub.lastPushBody["Password"])
	assert.Equal(t, float64(100), stub.lastPushBody["Amount"])
	assert.Equal(t, "254712345678", stub.lastPushBody["PhoneNumber"])
	assert.Equal(t, "ORDER-R1", stub.lastPushBody["AccountReference"])
}

func TestSubmitReusesCachedToken(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"CheckoutRequestID": "ws_CO_1", "ResponseCode": "0"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Submit(context.Background(), testIntent())
	require.NoError(t, err)
	_, err = client.Submit(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, int32(1), stub.tokenCalls)
	assert.Equal(t, int32(2), stub.pushCalls)
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			if calls <= 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"CheckoutRequestID": "ws_CO_2", "ResponseCode": "0"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Submit(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_2", result.TrackingID)
	assert.Equal(t, int32(4), stub.pushCalls)
}

func TestSubmitDoesNotRetryClientErrors(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"requestId": "1", "errorCode": "400.002.02", "errorMessage": "Bad Request - Invalid Amount"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Submit(context.Background(), testIntent())
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrRejected)
	assert.Equal(t, int32(1), stub.pushCalls)
}

func TestSubmitRefreshesTokenOnAuthExpiry(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			if calls == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"CheckoutRequestID": "ws_CO_3", "ResponseCode": "0"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.Submit(context.Background(), testIntent())
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_3", result.TrackingID)
	assert.Equal(t, int32(2), stub.tokenCalls)
	assert.Equal(t, int32(2), stub.pushCalls)
}

func TestSubmitGatewayRejection(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ResponseCode": "1", "ResponseDescription": "Insufficient funds on the short code"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Submit(context.Background(), testIntent())
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrRejected)
	assert.Contains(t, err.Error(), "Insufficient funds")
	assert.Equal(t, int32(1), stub.pushCalls)
}

func TestSubmitMalformedResponse(t *testing.T) {
	stub := &gatewayStub{
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Submit(context.Background(), testIntent())
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrMalformedResponse)
	assert.Equal(t, int32(1), stub.pushCalls)
}

func TestSubmitTokenAcquisitionFails(t *testing.T) {
	stub := &gatewayStub{
		tokenStatus: http.StatusInternalServerError,
		pushHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			t.Error("push endpoint must not be called without a token")
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Submit(context.Background(), testIntent())
	require.Error(t, err)

	assert.ErrorIs(t, err, gateway.ErrAuthFailed)
	assert.Equal(t, int32(0), stub.pushCalls)
}

func TestQueryStatusCompleted(t *testing.T) {
	stub := &gatewayStub{
		queryHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ResponseCode": "0", "ResponseDescription": "The service request has been accepted successfully",
				"MerchantRequestID": "22205-34066-1", "CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": "0", "ResultDesc": "The service request is processed successfully."}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.QueryStatus(context.Background(), "ws_CO_191220191020363925")
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeCompleted, result.Outcome)
	assert.Equal(t, "0", result.ResultCode)
}

func TestQueryStatusCancelledByUser(t *testing.T) {
	stub := &gatewayStub{
		queryHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ResponseCode": "0", "ResultCode": "1032", "ResultDesc": "Request cancelled by user"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeCancelled, result.Outcome)
}

func TestQueryStatusStillProcessing(t *testing.T) {
	stub := &gatewayStub{
		queryHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"requestId": "1", "errorCode": "500.001.1001", "errorMessage": "The transaction is being processed"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomePending, result.Outcome)
	assert.Equal(t, int32(1), stub.queryCalls)
}

func TestQueryStatusExpiredAtGateway(t *testing.T) {
	stub := &gatewayStub{
		queryHandler: func(calls int32, w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ResponseCode": "0", "ResultCode": "1037", "ResultDesc": "DS timeout user cannot be reached"}`))
		},
	}
	server := stub.server()
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.QueryStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, gateway.OutcomeExpired, result.Outcome)
}
