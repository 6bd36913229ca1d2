package engine

import (
	"context"
	"math/rand"
	"time"
)

// Pacer performs the waits of a run.
type Pacer interface {
	// Pause sleeps for d or until ctx is done.
	Pause(ctx context.Context, d time.Duration) error
	// Between returns a duration in [min, max).
	Between(min, max time.Duration) time.Duration
}

type humanPacer struct{}

// NewHumanPacer returns a Pacer that really sleeps, with random jitter.
func NewHumanPacer() Pacer {
	return humanPacer{}
}

func (humanPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (humanPacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

type instantPacer struct{}

// InstantPacer returns a Pacer that never sleeps. Used for offline replays.
func InstantPacer() Pacer {
	return instantPacer{}
}

func (instantPacer) Pause(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (instantPacer) Between(min, _ time.Duration) time.Duration {
	return min
}
