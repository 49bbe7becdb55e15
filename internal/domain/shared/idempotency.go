package shared

import (
	"context"
	"time"
)

// IdempotencyStore records handled keys so an at-least-once delivery
// does not repeat a side effect such as a payout notification.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. Exactly one caller per key gets
	// true until the claim expires.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls how long handled event ids are remembered.
// The TTL must outlive the outbox retry window or a late retry slips through.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
