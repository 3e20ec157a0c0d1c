// internal/common/ratelimit/ratelimit_test.go
package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-asa/chat-websearch/internal/common/config"
	"github.com/ai-asa/chat-websearch/internal/common/database"
	"github.com/ai-asa/chat-websearch/internal/common/logger"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	return mr, client
}

func TestLocalLimiter_SpacesRequests(t *testing.T) {
	l := NewLocal(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "duckduckgo"))
	require.NoError(t, l.Wait(ctx, "duckduckgo"))
	require.NoError(t, l.Wait(ctx, "duckduckgo"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	other := time.Now()
	require.NoError(t, l.Wait(ctx, "google"))
	assert.Less(t, time.Since(other), 40*time.Millisecond, "keys are independent")
}

func TestLocalLimiter_ContextCancel(t *testing.T) {
	l := NewLocal(time.Hour)
	require.NoError(t, l.Wait(context.Background(), "k"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "k"), context.DeadlineExceeded)
}

func TestRedisLimiter_AllowsWithinWindow(t *testing.T) {
	_, client := setupRedis(t)
	l := NewRedis(client, 2, time.Second, logger.NewTestLogger(t))

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "google"))
	require.NoError(t, l.Wait(ctx, "google"))

	ctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx, "google"), context.DeadlineExceeded, "third request waits for the window")
}

func TestRedisLimiter_WaitsForWindowToRoll(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedis(client, 1, 40*time.Millisecond, nil)

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "google"))

	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx, "google") }()

	// miniredis only expires keys on FastForward
	time.Sleep(10 * time.Millisecond)
	mr.FastForward(time.Second)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("limiter never released")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectIncr("research:ratelimit:google").SetErr(errors.New("connection refused"))

	l := NewRedis(&database.RedisClient{Client: db}, 1, time.Second, logger.NewTestLogger(t))
	assert.NoError(t, l.Wait(context.Background(), "google"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlimited(t *testing.T) {
	assert.NoError(t, Unlimited{}.Wait(context.Background(), "x"))
}
