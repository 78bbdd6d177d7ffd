package port

import (
	"context"
	"time"
)

// RateLimitStore keeps timestamped attempts per key so the HTTP layer can
// throttle credential endpoints (login, register, refresh) over a sliding window.
type RateLimitStore interface {
	// TrimWindow drops attempts older than reference-window.
	TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	// OldestAttempt reports the earliest attempt still inside the window, if any.
	OldestAttempt(ctx context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
