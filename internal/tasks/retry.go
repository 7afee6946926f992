package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/shared"
)

// RetryPolicy decides whether a failed artist run is restarted and how long to wait first.
type RetryPolicy struct {
	MaxRetries        int
	HydrationBackoff  time.Duration // multiplied by the retry number
	ConnectionBackoff time.Duration
	// Sleep waits between attempts; it must return early with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy allows 3 retries with 2s, 4s, 6s after hydration failures and 10s after connection failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		HydrationBackoff:  2 * time.Second,
		ConnectionBackoff: 10 * time.Second,
		Sleep:             sleepWithContext,
	}
}

// Delay returns the wait before the given retry (1-based) and whether err may be retried at all.
func (p RetryPolicy) Delay(err error, retry int) (time.Duration, bool) {
	switch {
	case errors.Is(err, shared.ErrHydration):
		return p.HydrationBackoff * time.Duration(retry), true
	case errors.Is(err, shared.ErrConnection):
		return p.ConnectionBackoff, true
	default:
		return 0, false
	}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return sleepWithContext(ctx, d)
	}
	return p.Sleep(ctx, d)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExhaustedRetriesError is returned when an artist run still fails after the last retry.
type ExhaustedRetriesError struct {
	RemoteID string
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("import of artist %s failed after %d attempts: %v", e.RemoteID, e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == shared.ErrExhaustedRetries
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// TrackError is a failure while saving a single track. It is logged and never aborts the run.
type TrackError struct {
	RemoteID string
	Err      error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("track %s: %v", e.RemoteID, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}
