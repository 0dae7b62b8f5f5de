package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"childcare-registration/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{config: &ClientConfig{
		RequestTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}}
}

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := newTestClient()
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("rpc error: code = Unavailable")
		}
		return int64(42), nil
	}, "test")

	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := newTestClient()
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("process not found")
	}, "test")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, "EXTERNAL_SERVICE_ERROR", string(stdErr.Code))
}

func TestMapZeebeError(t *testing.T) {
	c := newTestClient()

	tests := []struct {
		msg      string
		wantCode string
	}{
		{"context deadline exceeded", "TIMEOUT_ERROR"},
		{"permission denied", "UNAUTHORIZED"},
		{"something else", "EXTERNAL_SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(fmt.Errorf("%s", tt.msg), "op", 0)
			assert.Equal(t, tt.wantCode, string(errors.AsStandardError(err).Code))
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("connection refused")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("Deadline Exceeded")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("invalid argument")))
}

func TestReviewRequestVariables(t *testing.T) {
	vars := ReviewRequest{ApplicationID: "abc", ApplicationNumber: "RK-2025-00001"}.variables()
	assert.Equal(t, "abc", vars["applicationId"])
	assert.Equal(t, "RK-2025-00001", vars["applicationNumber"])
}
