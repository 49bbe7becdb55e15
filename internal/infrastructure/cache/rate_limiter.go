package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRateLimitKeyPrefix namespaces rate limit counters in Redis
const DefaultRateLimitKeyPrefix = "admarket:ratelimit:"

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

func decide(limit int, count int64, resetIn time.Duration) RateDecision {
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateDecision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}

// RedisRateLimiter counts requests in fixed windows shared by every instance
type RedisRateLimiter struct {
	client    redis.UniversalClient
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window
func NewRedisRateLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, keyPrefix: DefaultRateLimitKeyPrefix}
}

// Allow increments the caller's counter for the current window
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	windowStart := time.Now().Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", l.keyPrefix, key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateDecision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return decide(l.limit, incr.Val(), time.Until(windowStart.Add(l.window))), nil
}

// InMemoryRateLimiter is the single-instance fallback
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type rateWindow struct {
	count int64
	start time.Time
}

// NewInMemoryRateLimiter creates a limiter and starts its cleanup loop
func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		clients: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.window * 2)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.clients {
				if now.Sub(w.start) > l.window*2 {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow counts the request against the caller's window
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) (RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		l.clients[key] = w
	}
	w.count++
	return decide(l.limit, w.count, w.start.Add(l.window).Sub(now)), nil
}

// Close stops the cleanup loop
func (l *InMemoryRateLimiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}
