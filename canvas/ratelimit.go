package canvas

import (
	"context"
	"time"
)

// Rate limit constants: at most RateLimitMax committed edits per identity
// per rolling RateLimitWindow. Fixed configuration, not per-canvas.
const (
	RateLimitMax    = 60
	RateLimitWindow = time.Minute
)

// Limiter bounds how many committed edits an identity may make per rolling
// window. The gateway depends on this interface only, so the history-count
// implementation can later be swapped for a true token bucket without
// touching the draw contract.
type Limiter interface {
	Allow(ctx context.Context, identity string, now time.Time) (bool, error)
}

// HistoryLimiter derives the limit from the edit history itself: an edit is
// allowed while fewer than max records by the identity exist inside the
// window. Count-then-append is not atomic across concurrent requests from
// the same identity, so the nominal cap can briefly be exceeded by a small
// bounded amount. Known slack, not a hard cap.
type HistoryLimiter struct {
	store  *Store
	max    int
	window time.Duration
}

// NewHistoryLimiter creates the default 60-edits-per-60s limiter.
func NewHistoryLimiter(store *Store) *HistoryLimiter {
	return &HistoryLimiter{store: store, max: RateLimitMax, window: RateLimitWindow}
}

// Allow reports whether the identity may commit another edit at now.
func (l *HistoryLimiter) Allow(ctx context.Context, identity string, now time.Time) (bool, error) {
	n, err := l.store.CountEditsBy(ctx, identity, now.Add(-l.window).UnixMilli())
	if err != nil {
		return false, err
	}
	return n < l.max, nil
}
