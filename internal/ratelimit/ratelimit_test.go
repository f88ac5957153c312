package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 手动推进的时钟。
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(maxRequests, windowSeconds int) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(maxRequests, windowSeconds)
	l.now = clock.now
	return l, clock
}

func TestLimiterAllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(3, 60)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check("t1:1.2.3.4"))
	}

	err := l.Check("t1:1.2.3.4")
	require.Error(t, err)

	var limitErr *RateLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 60*time.Second, limitErr.RetryAfter)
}

func TestLimiterRetryAfterShrinksOverTime(t *testing.T) {
	l, clock := newTestLimiter(2, 60)

	require.NoError(t, l.Check("k"))
	clock.advance(10 * time.Second)
	require.NoError(t, l.Check("k"))
	clock.advance(15 * time.Second)

	err := l.Check("k")
	var limitErr *RateLimitError
	require.True(t, errors.As(err, &limitErr))
	// 最早一次请求在 25 秒前，还需等 35 秒
	assert.Equal(t, 35*time.Second, limitErr.RetryAfter)
}

func TestLimiterReadmitsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter(2, 60)

	require.NoError(t, l.Check("k"))
	require.NoError(t, l.Check("k"))
	require.Error(t, l.Check("k"))

	clock.advance(61 * time.Second)
	assert.NoError(t, l.Check("k"))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 60)

	require.NoError(t, l.Check("t1:a"))
	require.Error(t, l.Check("t1:a"))
	assert.NoError(t, l.Check("t1:b"))
	assert.NoError(t, l.Check("t2:a"))
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(1, 60)

	require.NoError(t, l.Check("k"))
	require.Error(t, l.Check("k"))

	l.Reset("k")
	assert.NoError(t, l.Check("k"))
}

func TestClearExpiredDropsIdleKeys(t *testing.T) {
	l, clock := newTestLimiter(2, 60)

	require.NoError(t, l.Check("idle"))
	clock.advance(30 * time.Second)
	require.NoError(t, l.Check("active"))

	clock.advance(45 * time.Second)
	l.ClearExpired()

	l.mu.Lock()
	_, idleKept := l.buckets["idle"]
	_, activeKept := l.buckets["active"]
	l.mu.Unlock()

	assert.False(t, idleKept)
	assert.True(t, activeKept)
}

func TestNewLimiterPanicsOnBadThresholds(t *testing.T) {
	assert.Panics(t, func() { NewLimiter(0, 60) })
	assert.Panics(t, func() { NewLimiter(10, 0) })
	assert.Panics(t, func() { NewLimiter(-1, -1) })
}
