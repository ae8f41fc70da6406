package gateway_test

import (
	"fmt"
	"testing"

	"github.com/dukapay/payments/pkg/gateway"
	"github.com/stretchr/testify/assert"
)

func TestMapStatusToError(t *testing.T) {
	testCases := []struct {
		name          string
		statusCode    int
		expectedError error
	}{
		{
			name:          "Unauthorized",
			statusCode:    401,
			expectedError: gateway.ErrAuthExpired,
		},
		{
			name:          "BadRequest",
			statusCode:    400,
			expectedError: gateway.ErrRejected,
		},
		{
			name:          "NotFound",
			statusCode:    404,
			expectedError: gateway.ErrRejected,
		},
		{
			name:          "TooManyRequests",
			statusCode:    429,
			expectedError: gateway.ErrRejected,
		},
		{
			name:          "InternalServerError",
			statusCode:    500,
			expectedError: gateway.ErrUnavailable,
		},
		{
			name:          "BadGateway",
			statusCode:    502,
			expectedError: gateway.ErrUnavailable,
		},
		{
			name:          "ServiceUnavailable",
			statusCode:    503,
			expectedError: gateway.ErrUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := gateway.MapStatusToError(tc.statusCode)

			assert.Error(t, err, "Expected an error for status code %d", tc.statusCode)
			assert.Equal(t, tc.expectedError, err)
		})
	}
}

func TestMapStatusToErrorSuccessStatus(t *testing.T) {
	assert.NoError(t, gateway.MapStatusToError(200))
	assert.NoError(t, gateway.MapStatusToError(201))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, gateway.IsRetriable(gateway.ErrTimeout))
	assert.True(t, gateway.IsRetriable(gateway.ErrUnavailable))
	assert.True(t, gateway.IsRetriable(fmt.Errorf("submit order: %w", gateway.ErrUnavailable)))

	assert.False(t, gateway.IsRetriable(gateway.ErrRejected))
	assert.False(t, gateway.IsRetriable(gateway.ErrAuthFailed))
	assert.False(t, gateway.IsRetriable(gateway.ErrMalformedResponse))
}
