package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/httpclient"
)

const (
	TokenEndpoint    = "/oauth/v1/generate?grant_type=client_credentials"
	STKPushEndpoint  = "/mpesa/stkpush/v1/processrequest"
	STKQueryEndpoint = "/mpesa/stkpushquery/v1/query"

	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"

	// errorCode returned by the query endpoint while the customer has
	// not yet acted on the PIN prompt
	pendingErrorCode = "500.001.1001"
)

var resultCodeOutcomes = map[string]gateway.Outcome{
	"0":    gateway.OutcomeCompleted,
	"1032": gateway.OutcomeCancelled,
	"1037": gateway.OutcomeExpired,
	"1019": gateway.OutcomeExpired,
}

// OutcomeForResultCode maps an STK push result code to an outcome.
// Unknown codes are failures, never silently treated as success.
func OutcomeForResultCode(code string) gateway.Outcome {
	if outcome, ok := resultCodeOutcomes[code]; ok {
		return outcome
	}

	return gateway.OutcomeFailed
}

type client struct {
	config Config
	client httpclient.HTTPClient
	tokens *gateway.TokenCache
	policy backoff.Policy
}

func New(cfg Config, httpClient httpclient.HTTPClient, policy backoff.Policy) gateway.Client {
	c := &client{config: cfg, client: httpClient, policy: policy}
	c.tokens = gateway.NewTokenCache(gateway.MobileMoney,
		gateway.TokenSourceFunc(c.fetchToken), cfg.TokenSafetyMargin, policy)
	return c
}

func (c *client) Name() gateway.Name { return gateway.MobileMoney }

func (c *client) Submit(ctx context.Context, intent gateway.PaymentIntent) (gateway.SubmissionResult, error) {
	timestamp := time.Now().Format(timestampLayout)
	request := stkPushRequest{
		BusinessShortCode: c.config.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            intent.Amount.IntPart(),
		PartyA:            intent.PhoneNumber,
		PartyB:            c.config.ShortCode,
		PhoneNumber:       intent.PhoneNumber,
		CallBackURL:       c.config.CallbackURL,
		AccountReference:  intent.MerchantReference,
		TransactionDesc:   intent.Description,
	}

	result, err := backoff.Retry(ctx, c.policy, func(ctx context.Context) (interface{}, error) {
		return c.submitOnce(ctx, request)
	}, gateway.IsRetriable)
	if err != nil {
		return gateway.SubmissionResult{}, err
	}

	return result.(gateway.SubmissionResult), nil
}

func (c *client) submitOnce(ctx context.Context, request stkPushRequest) (gateway.SubmissionResult, error) {
	body, status, err := c.authorizedPost(ctx, STKPushEndpoint, request)
	if err != nil {
		return gateway.SubmissionResult{}, err
	}

	if status != http.StatusOK {
		return gateway.SubmissionResult{}, gateway.MapStatusToError(status)
	}

	var response stkPushResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: decoding push response: %v", gateway.ErrMalformedResponse, err)
	}

	if response.ResponseCode != "0" {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: %s", gateway.ErrRejected, response.ResponseDescription)
	}

	if response.CheckoutRequestID == "" {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: push response missing CheckoutRequestID", gateway.ErrMalformedResponse)
	}

	return gateway.SubmissionResult{
		TrackingID:  response.CheckoutRequestID,
		Description: response.CustomerMessage,
		RawResponse: body,
	}, nil
}

func (c *client) QueryStatus(ctx context.Context, trackingID string) (gateway.StatusResult, error) {
	timestamp := time.Now().Format(timestampLayout)
	request := stkQueryRequest{
		BusinessShortCode: c.config.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: trackingID,
	}

	result, err := backoff.Retry(ctx, c.policy, func(ctx context.Context) (interface{}, error) {
		return c.queryOnce(ctx, request)
	}, gateway.IsRetriable)
	if err != nil {
		return gateway.StatusResult{}, err
	}

	return result.(gateway.StatusResult), nil
}

func (c *client) queryOnce(ctx context.Context, request stkQueryRequest) (gateway.StatusResult, error) {
	body, status, err := c.authorizedPost(ctx, STKQueryEndpoint, request)
	if err != nil {
		return gateway.StatusResult{}, err
	}

	if status != http.StatusOK {
		var gwErr errorResponse
		if json.Unmarshal(body, &gwErr) == nil && gwErr.ErrorCode == pendingErrorCode {
			return gateway.StatusResult{
				Outcome:     gateway.OutcomePending,
				Description: gwErr.ErrorMessage,
				RawResponse: body,
			}, nil
		}

		return gateway.StatusResult{}, gateway.MapStatusToError(status)
	}

	var response stkQueryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return gateway.StatusResult{}, fmt.Errorf("%w: decoding query response: %v", gateway.ErrMalformedResponse, err)
	}

	if response.ResultCode == "" {
		return gateway.StatusResult{
			Outcome:     gateway.OutcomePending,
			Description: response.ResponseDescription,
			RawResponse: body,
		}, nil
	}

	return gateway.StatusResult{
		Outcome:     OutcomeForResultCode(response.ResultCode),
		ResultCode:  response.ResultCode,
		Description: response.ResultDesc,
		RawResponse: body,
	}, nil
}

func (c *client) fetchToken(ctx context.Context) (gateway.Token, error) {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.config.ConsumerKey + ":" + c.config.ConsumerSecret))
	headers := map[string]string{"Authorization": "Basic " + credentials}

	resp, err := c.client.Get(ctx, c.config.BaseURL+TokenEndpoint, headers)
	if err != nil {
		return gateway.Token{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gateway.Token{}, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var response tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return gateway.Token{}, fmt.Errorf("decoding token response: %w", err)
	}

	if response.AccessToken == "" {
		return gateway.Token{}, errors.New("token response missing access_token")
	}

	expiresIn, err := strconv.Atoi(response.ExpiresIn)
	if err != nil {
		return gateway.Token{}, fmt.Errorf("parsing expires_in %q: %w", response.ExpiresIn, err)
	}

	return gateway.Token{
		AccessToken: response.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// authorizedPost sends the payload with a bearer token. A 401 means the
// token expired at the gateway before the local expiry; it is refreshed
// once and the request retried a single time.
func (c *client) authorizedPost(ctx context.Context, endpoint string, payload interface{}) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	body, status, err := c.post(ctx, endpoint, payload, token.AccessToken)
	if err != nil {
		return nil, 0, err
	}

	if status != http.StatusUnauthorized {
		return body, status, nil
	}

	c.tokens.Invalidate()
	token, err = c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	body, status, err = c.post(ctx, endpoint, payload, token.AccessToken)
	if err != nil {
		return nil, 0, err
	}

	if status == http.StatusUnauthorized {
		return nil, status, gateway.ErrAuthFailed
	}

	return body, status, nil
}

func (c *client) post(ctx context.Context, endpoint string, payload interface{}, accessToken string) ([]byte, int, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, 0, fmt.Errorf("encoding error: %w", err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + accessToken,
	}

	resp, err := c.client.Post(ctx, c.config.BaseURL+endpoint, &buf, headers)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, gateway.ErrTimeout
		}

		return nil, 0, fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

func (c *client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.config.ShortCode + c.config.PassKey + timestamp))
}
