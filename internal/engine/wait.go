package engine

import (
	"context"
	"time"
)

// Pause blocks for d or until ctx is done, returning ctx.Err() in the latter case.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PauseFloor blocks until at least floor has passed since start.
func PauseFloor(ctx context.Context, start time.Time, floor time.Duration) error {
	return Pause(ctx, floor-time.Since(start))
}
