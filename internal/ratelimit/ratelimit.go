// Package ratelimit 实现了基于滑动窗口的进程内准入控制。
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitError 表示调用方超过了配置的请求频率。
type RateLimitError struct {
	// RetryAfter 是距离窗口内最早一次请求过期还需等待的时长。
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %.1fs", e.RetryAfter.Seconds())
}

// Limiter 为每个 key 维护一个容量固定的时间戳窗口。
// 互斥锁为实例级而非 key 级：key 基数预期很小，窗口操作为 O(窗口大小)。
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time

	// now 可注入，便于测试推进时钟。
	now func() time.Time
}

// NewLimiter 创建一个新的 Limiter。maxRequests 和 windowSeconds 必须为正数。
func NewLimiter(maxRequests, windowSeconds int) *Limiter {
	if maxRequests <= 0 || windowSeconds <= 0 {
		panic("ratelimit: thresholds must be positive")
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      time.Duration(windowSeconds) * time.Second,
		buckets:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Check 尝试为 key 准入一次请求。窗口已满时返回 *RateLimitError。
func (l *Limiter) Check(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[key]

	// 从队首剔除窗口外的时间戳
	expired := 0
	for expired < len(bucket) && now.Sub(bucket[expired]) > l.window {
		expired++
	}
	if expired > 0 {
		bucket = append(bucket[:0], bucket[expired:]...)
	}

	if len(bucket) >= l.maxRequests {
		l.buckets[key] = bucket
		return &RateLimitError{RetryAfter: l.window - now.Sub(bucket[0])}
	}

	bucket = append(bucket, now)
	if len(bucket) > l.maxRequests {
		bucket = bucket[len(bucket)-l.maxRequests:]
	}
	l.buckets[key] = bucket
	return nil
}

// Reset 清空指定 key 的窗口。
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// ClearExpired 剔除最近一次请求已在窗口外的 key，限制内存增长。
// 由调用方按固定周期调度。
func (l *Limiter) ClearExpired() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, bucket := range l.buckets {
		if len(bucket) == 0 || now.Sub(bucket[len(bucket)-1]) > l.window {
			delete(l.buckets, key)
		}
	}
}
