package domain

import (
	"context"
	"time"
)

// LockManager provides distributed locking, used as a cross-instance fence
// ahead of the in-process claim CAS.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter bounds request rates per key over a sliding or fixed window.
// Implementations should fail open on backend errors.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus publishes edge lifecycle and swarm events for external consumers
// (status panels, alerting). Publishing is best-effort: the lifecycle never
// blocks on a slow bus.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
