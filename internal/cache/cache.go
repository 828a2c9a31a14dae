package cache

import (
	"context"
	"time"
)

// Cache stores JSON encodable values for a bounded time.
type Cache interface {
	// Get decodes the value stored under key into v and reports whether it was found.
	Get(ctx context.Context, key string, v any) (bool, error)
	// Set stores v under key for ttl.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	// Flush drops every entry written through this cache.
	Flush(ctx context.Context) error
}
