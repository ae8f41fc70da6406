package gateway

import (
	"errors"
	"net/http"
)

const (
	ErrCodeTimeout           = "GATEWAY_TIMEOUT"
	ErrCodeUnavailable       = "GATEWAY_UNAVAILABLE"
	ErrCodeRejected          = "GATEWAY_REJECTED"
	ErrCodeAuthFailed        = "GATEWAY_AUTH_FAILED"
	ErrCodeAuthExpired       = "GATEWAY_AUTH_EXPIRED"
	ErrCodeMalformedResponse = "GATEWAY_MALFORMED_RESPONSE"
)

var (
	ErrTimeout           = errors.New(ErrCodeTimeout)
	ErrUnavailable       = errors.New(ErrCodeUnavailable)
	ErrRejected          = errors.New(ErrCodeRejected)
	ErrAuthFailed        = errors.New(ErrCodeAuthFailed)
	ErrAuthExpired       = errors.New(ErrCodeAuthExpired)
	ErrMalformedResponse = errors.New(ErrCodeMalformedResponse)
)

// MapStatusToError classifies a non-200 gateway response. 401 is the
// auth-expiry marker handled by a single token refresh and retry; other
// 4xx responses are permanent, 5xx are transient.
func MapStatusToError(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrAuthExpired
	case statusCode >= http.StatusInternalServerError:
		return ErrUnavailable
	case statusCode >= http.StatusBadRequest:
		return ErrRejected
	}

	return nil
}

// IsRetriable reports whether the error is transient: timeouts and 5xx
// responses are retried, everything else fails fast.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
