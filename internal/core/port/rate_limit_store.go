package port

import (
	"context"
	"time"
)

// WindowState describes a sliding window after stale entries were swept.
// Oldest is the zero time when no attempt remains inside the window.
type WindowState struct {
	Attempts int
	Oldest   time.Time
}

// RetryAfter returns how long a limited caller has to wait until the oldest
// attempt leaves the window. It falls back to the full window when the
// window is empty.
func (w WindowState) RetryAfter(window time.Duration, reference time.Time) time.Duration {
	if w.Oldest.IsZero() {
		return window
	}
	remaining := w.Oldest.Add(window).Sub(reference)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RateLimitStore tracks attempts within a sliding time window. The counts
// are eventually consistent under concurrent writes; this is a deterrent
// control, not a hard guarantee.
type RateLimitStore interface {
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// SweepWindow drops attempts older than the window ending at the
	// reference time and reports what remains.
	SweepWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) (WindowState, error)
}
