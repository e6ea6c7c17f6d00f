package port

import (
	"context"
	"time"
)

// RateLimitStore persists login attempt timestamps for sliding-window
// throttling of authentication endpoints.
type RateLimitStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
}
