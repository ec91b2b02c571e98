package model

import (
	"context"
	"time"
)

// ThrottlePolicy parameterizes a sliding-window attempt counter.
type ThrottlePolicy struct {
	Window         time.Duration
	MaxAttempts    int
	ResetOnSuccess bool
}

// AttemptCounter counts attempts for one subject (IP or user) within a
// window anchored at the first failure. Count never exceeds the policy
// maximum and never goes negative.
type AttemptCounter struct {
	Key           string
	Count         int
	WindowResetAt time.Time
}

// ThrottleStore persists attempt counters.
type ThrottleStore interface {
	Get(ctx context.Context, key string) (AttemptCounter, error)
	Put(ctx context.Context, counter AttemptCounter) error
	Delete(ctx context.Context, key string) error
	// Sweep removes counters whose window has elapsed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
