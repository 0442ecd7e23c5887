package utils

import (
	"context"
	"math/rand"
	"time"
)

// Jitter produces randomized delays in [Min, Max).
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Next returns the next delay. Min is returned when Max does not exceed it.
func (j Jitter) Next() time.Duration {
	if j.Min <= 0 && j.Max <= 0 {
		return 0
	}
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + time.Duration(rand.Int63n(int64(j.Max-j.Min)))
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
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
