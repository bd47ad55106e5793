// Package cache stores conversation state behind a small key/value interface.
package cache

import (
	"context"
	"time"
)

// Cache is the conversation cache collaborator. Get reports a miss with ok=false
// and a nil error. Set with ttl <= 0 stores without expiry.
type Cache interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
