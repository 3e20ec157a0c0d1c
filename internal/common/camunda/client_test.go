// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/errors"
)

var fastBackoff = Backoff{Attempts: 3, Base: time.Millisecond, Max: 5 * time.Millisecond}

func TestRetry_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	res, err := Retry(context.Background(), fastBackoff, "topology", func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", status.Error(codes.Unavailable, "connection refused")
		}
		return "ready", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ready", res)
	assert.Equal(t, 3, attempts)
}

func TestRetry_PermanentErrorMapped(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
		code     errors.ErrorCode
	}{
		{"not found", status.Error(codes.NotFound, "process definition not found"), 1, errors.ErrCodeNotFound},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad variables"), 1, errors.ErrCodeExternalService},
		{"exhausted timeouts", status.Error(codes.DeadlineExceeded, "slow broker"), 3, errors.ErrCodeServiceTimeout},
		{"exhausted unavailable", status.Error(codes.Unavailable, "down"), 3, errors.ErrCodeExternalService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			_, err := Retry(context.Background(), fastBackoff, "create-instance", func(ctx context.Context) (int, error) {
				attempts++
				return 0, tt.err
			})

			require.Error(t, err)
			assert.Equal(t, tt.attempts, attempts)

			var stdErr *errors.StandardError
			require.True(t, stderrors.As(err, &stdErr))
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := Backoff{Attempts: 5, Base: time.Hour, Max: time.Hour}

	_, err := Retry(ctx, slow, "topology", func(ctx context.Context) (bool, error) {
		cancel()
		return false, status.Error(codes.Unavailable, "starting")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 5 * time.Second}
	assert.Equal(t, time.Second, b.delay(0))
	assert.Equal(t, 4*time.Second, b.delay(2))
	assert.Equal(t, 5*time.Second, b.delay(3))
	assert.Equal(t, 5*time.Second, b.delay(70))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 2500})
	assert.Equal(t, "zeebe:26500", opts.GatewayAddress)
	assert.True(t, opts.Plaintext)
	assert.Equal(t, 2500*time.Millisecond, opts.DialTimeout)
	assert.Equal(t, DefaultBackoff, opts.Backoff)

	assert.Equal(t, 10*time.Second, OptionsFromConfig(config.CamundaConfig{}).DialTimeout)
}
