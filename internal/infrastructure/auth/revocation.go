package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList answers whether a token was revoked before it expired.
// The auth service writes revocations on logout; this service reads them.
type RevocationList interface {
	// IsRevoked reports whether the token jti was revoked, or whether all of
	// userID's tokens issued at or before issuedAt were invalidated
	IsRevoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error)
}

const revocationKeyPrefix = "auth:revoked:"

// RedisRevocationList reads revocations shared by the auth service
type RedisRevocationList struct {
	client redis.UniversalClient
}

// NewRedisRevocationList wraps an existing client
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func jtiKey(jti string) string { return revocationKeyPrefix + "jti:" + jti }
func userKey(userID string) string { return revocationKeyPrefix + "user:" + userID }

// IsRevoked checks the jti key and the user's invalidation timestamp
func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	if jti != "" {
		n, err := l.client.Exists(ctx, jtiKey(jti)).Result()
		if err != nil {
			return false, fmt.Errorf("check jti: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}

	raw, err := l.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user invalidation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse invalidation timestamp %q: %w", raw, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// RevokeToken records jti as revoked until ttl elapses
func (l *RedisRevocationList) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	return l.client.Set(ctx, jtiKey(jti), 1, ttl).Err()
}

// RevokeUser invalidates every token of userID issued up to now
func (l *RedisRevocationList) RevokeUser(ctx context.Context, userID string, now time.Time, ttl time.Duration) error {
	return l.client.Set(ctx, userKey(userID), now.Unix(), ttl).Err()
}

// InMemoryRevocationList is a single-process RevocationList for tests and
// local runs without Redis
type InMemoryRevocationList struct {
	mu    sync.RWMutex
	jtis  map[string]time.Time
	users map[string]time.Time
	now   func() time.Time
}

// NewInMemoryRevocationList creates an empty list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
		now:   time.Now,
	}
}

// IsRevoked implements RevocationList
func (l *InMemoryRevocationList) IsRevoked(_ context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if exp, ok := l.jtis[jti]; ok && l.now().Before(exp) {
		return true, nil
	}
	if cutoff, ok := l.users[userID]; ok && !issuedAt.After(cutoff) {
		return true, nil
	}
	return false, nil
}

// RevokeToken records jti as revoked until ttl elapses
func (l *InMemoryRevocationList) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jtis[jti] = l.now().Add(ttl)
	return nil
}

// RevokeUser invalidates every token of userID issued up to now
func (l *InMemoryRevocationList) RevokeUser(_ context.Context, userID string, now time.Time, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = now
	return nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*InMemoryRevocationList)(nil)
)
