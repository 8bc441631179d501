package auth

import (
	"context"
	"time"
)

// LoginThrottle tracks failed password logins per key (the normalized email).
type LoginThrottle interface {
	// Check returns how long the key stays blocked, or zero when it may try again.
	Check(ctx context.Context, key string) (time.Duration, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// ThrottleConfig tunes login throttling.
type ThrottleConfig struct {
	MaxFailures int
	Window      time.Duration
}

// NoopThrottle never blocks.
type NoopThrottle struct{}

func (NoopThrottle) Check(context.Context, string) (time.Duration, error) { return 0, nil }
func (NoopThrottle) RecordFailure(context.Context, string) error         { return nil }
func (NoopThrottle) Reset(context.Context, string) error                 { return nil }

// OutcomeRecorder receives every authentication result, for metrics.
type OutcomeRecorder interface {
	RecordOutcome(strategy, reason string)
}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(string, string) {}
