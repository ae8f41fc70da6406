package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dukapay/payments/pkg/backoff"
	"github.com/dukapay/payments/pkg/gateway"
	"github.com/dukapay/payments/pkg/httpclient"
)

const (
	TokenEndpoint  = "/api/Auth/RequestToken"
	SubmitEndpoint = "/api/Transactions/SubmitOrderRequest"
	StatusEndpoint = "/api/Transactions/GetTransactionStatus"
)

// status_code values reported by GetTransactionStatus.
const (
	statusCodeInvalid   = 0
	statusCodeCompleted = 1
	statusCodeFailed    = 2
	statusCodeReversed  = 3
)

// OutcomeForStatusCode maps a transaction status code to an outcome.
// INVALID means the customer has not finished the hosted-page flow yet,
// so it stays pending. Reversals surface as cancellations.
func OutcomeForStatusCode(code int) gateway.Outcome {
	switch code {
	case statusCodeCompleted:
		return gateway.OutcomeCompleted
	case statusCodeFailed:
		return gateway.OutcomeFailed
	case statusCodeReversed:
		return gateway.OutcomeCancelled
	default:
		return gateway.OutcomePending
	}
}

type client struct {
	config Config
	client httpclient.HTTPClient
	tokens *gateway.TokenCache
	policy backoff.Policy
}

func New(cfg Config, httpClient httpclient.HTTPClient, policy backoff.Policy) gateway.Client {
	c := &client{config: cfg, client: httpClient, policy: policy}
	c.tokens = gateway.NewTokenCache(gateway.Card,
		gateway.TokenSourceFunc(c.fetchToken), cfg.TokenSafetyMargin, policy)
	return c
}

func (c *client) Name() gateway.Name { return gateway.Card }

func (c *client) Submit(ctx context.Context, intent gateway.PaymentIntent) (gateway.SubmissionResult, error) {
	request := submitOrderRequest{
		ID:             intent.MerchantReference,
		Currency:       intent.Currency,
		Amount:         intent.Amount.InexactFloat64(),
		Description:    intent.Description,
		CallbackURL:    c.config.CallbackURL,
		NotificationID: c.config.IPNID,
		BillingAddress: billingAddress{
			EmailAddress: intent.Email,
			PhoneNumber:  intent.PhoneNumber,
			FirstName:    intent.FirstName,
			LastName:     intent.LastName,
		},
	}

	result, err := backoff.Retry(ctx, c.policy, func(ctx context.Context) (interface{}, error) {
		return c.submitOnce(ctx, request)
	}, gateway.IsRetriable)
	if err != nil {
		return gateway.SubmissionResult{}, err
	}

	return result.(gateway.SubmissionResult), nil
}

func (c *client) submitOnce(ctx context.Context, request submitOrderRequest) (gateway.SubmissionResult, error) {
	body, status, err := c.authorizedPost(ctx, SubmitEndpoint, request)
	if err != nil {
		return gateway.SubmissionResult{}, err
	}

	if status != http.StatusOK {
		return gateway.SubmissionResult{}, gateway.MapStatusToError(status)
	}

	var response submitOrderResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: decoding order response: %v", gateway.ErrMalformedResponse, err)
	}

	if response.Error.isSet() {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: %s: %s", gateway.ErrRejected, response.Error.Code, response.Error.Message)
	}

	if response.OrderTrackingID == "" {
		return gateway.SubmissionResult{}, fmt.Errorf("%w: order response missing order_tracking_id", gateway.ErrMalformedResponse)
	}

	return gateway.SubmissionResult{
		TrackingID:  response.OrderTrackingID,
		RedirectURL: response.RedirectURL,
		RawResponse: body,
	}, nil
}

func (c *client) QueryStatus(ctx context.Context, trackingID string) (gateway.StatusResult, error) {
	endpoint := StatusEndpoint + "?orderTrackingId=" + url.QueryEscape(trackingID)

	result, err := backoff.Retry(ctx, c.policy, func(ctx context.Context) (interface{}, error) {
		return c.queryOnce(ctx, endpoint)
	}, gateway.IsRetriable)
	if err != nil {
		return gateway.StatusResult{}, err
	}

	return result.(gateway.StatusResult), nil
}

func (c *client) queryOnce(ctx context.Context, endpoint string) (gateway.StatusResult, error) {
	body, status, err := c.authorizedGet(ctx, endpoint)
	if err != nil {
		return gateway.StatusResult{}, err
	}

	if status != http.StatusOK {
		return gateway.StatusResult{}, gateway.MapStatusToError(status)
	}

	var response transactionStatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return gateway.StatusResult{}, fmt.Errorf("%w: decoding status response: %v", gateway.ErrMalformedResponse, err)
	}

	if response.Error.isSet() {
		return gateway.StatusResult{}, fmt.Errorf("%w: %s: %s", gateway.ErrRejected, response.Error.Code, response.Error.Message)
	}

	outcome := OutcomeForStatusCode(response.StatusCode)

	result := gateway.StatusResult{
		Outcome:          outcome,
		ResultCode:       strconv.Itoa(response.StatusCode),
		Description:      response.PaymentStatusDescription,
		ConfirmationCode: response.ConfirmationCode,
		RawResponse:      body,
	}
	if outcome == gateway.OutcomeCompleted {
		result.CompletedAt = parseTime(response.CreatedDate)
	}

	return result, nil
}

func (c *client) fetchToken(ctx context.Context) (gateway.Token, error) {
	var buf bytes.Buffer
	request := tokenRequest{ConsumerKey: c.config.ConsumerKey, ConsumerSecret: c.config.ConsumerSecret}
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return gateway.Token{}, fmt.Errorf("encoding error: %w", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}

	resp, err := c.client.Post(ctx, c.config.BaseURL+TokenEndpoint, &buf, headers)
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

	if response.Error.isSet() {
		return gateway.Token{}, fmt.Errorf("token request rejected: %s: %s", response.Error.Code, response.Error.Message)
	}

	if response.Token == "" {
		return gateway.Token{}, errors.New("token response missing token")
	}

	expiresAt, err := time.Parse(time.RFC3339Nano, response.ExpiryDate)
	if err != nil {
		return gateway.Token{}, fmt.Errorf("parsing expiryDate %q: %w", response.ExpiryDate, err)
	}

	return gateway.Token{AccessToken: response.Token, ExpiresAt: expiresAt}, nil
}

func (c *client) authorizedPost(ctx context.Context, endpoint string, payload interface{}) ([]byte, int, error) {
	return c.authorized(ctx, http.MethodPost, endpoint, payload)
}

func (c *client) authorizedGet(ctx context.Context, endpoint string) ([]byte, int, error) {
	return c.authorized(ctx, http.MethodGet, endpoint, nil)
}

// authorized sends the request with a bearer token. A 401 means the
// token expired at the gateway before the local expiry; it is refreshed
// once and the request retried a single time.
func (c *client) authorized(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, int, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}

	body, status, err := c.send(ctx, method, endpoint, payload, token.AccessToken)
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

	body, status, err = c.send(ctx, method, endpoint, payload, token.AccessToken)
	if err != nil {
		return nil, 0, err
	}

	if status == http.StatusUnauthorized {
		return nil, status, gateway.ErrAuthFailed
	}

	return body, status, nil
}

func (c *client) send(ctx context.Context, method, endpoint string, payload interface{}, accessToken string) ([]byte, int, error) {
	headers := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + accessToken,
	}

	var resp *http.Response
	var err error
	if method == http.MethodGet {
		resp, err = c.client.Get(ctx, c.config.BaseURL+endpoint, headers)
	} else {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, 0, fmt.Errorf("encoding error: %w", err)
		}
		headers["Content-Type"] = "application/json"
		resp, err = c.client.Post(ctx, c.config.BaseURL+endpoint, &buf, headers)
	}
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

// parseTime handles the gateway's two date flavours: RFC3339 with a zone
// for token expiry and a bare local timestamp for transaction dates.
func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &parsed
	}

	if parsed, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.Local); err == nil {
		return &parsed
	}

	return nil
}
