package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/authkeeper-server/internal/logger"
	"github.com/avoronov/authkeeper-server/internal/model"
)

// Throttle is a sliding-window attempt guard parameterized by a policy.
// The window is anchored at the first recorded failure for a subject.
type Throttle struct {
	store  model.ThrottleStore
	policy model.ThrottlePolicy
	logger *logger.Logger
	now    func() time.Time
}

// NewThrottle creates a throttle guard over the given store and policy.
func NewThrottle(store model.ThrottleStore, policy model.ThrottlePolicy, logger *logger.Logger) *Throttle {
	return &Throttle{store: store, policy: policy, logger: logger, now: time.Now}
}

// Check reports whether the subject may attempt. A throttled subject gets a
// RateLimitError with the time left in its window. Check never mutates the
// counter, so rejected requests cannot grow it.
func (t *Throttle) Check(ctx context.Context, key string) error {
	counter, err := t.store.Get(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get attempt counter: %w", err)
	}

	now := t.now()
	if !counter.WindowResetAt.After(now) {
		// Window elapsed, counter is stale.
		return nil
	}
	if counter.Count >= t.policy.MaxAttempts {
		t.logger.Info("Throttle: subject over limit",
			"key", key,
			"count", counter.Count)
		return &model.RateLimitError{RetryAfter: counter.WindowResetAt.Sub(now)}
	}
	return nil
}

// Record registers the outcome of an attempt. A success deletes the counter
// when the policy resets on success; policies without reset-on-success count
// successful attempts toward the cap as well. The count saturates at the
// policy maximum so repeated rejected attempts never grow it unboundedly.
func (t *Throttle) Record(ctx context.Context, key string, success bool) error {
	if success && t.policy.ResetOnSuccess {
		if err := t.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to reset attempt counter: %w", err)
		}
		return nil
	}

	now := t.now()
	counter, err := t.store.Get(ctx, key)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !counter.WindowResetAt.After(now)) {
		counter = model.AttemptCounter{
			Key:           key,
			Count:         1,
			WindowResetAt: now.Add(t.policy.Window),
		}
		if err := t.store.Put(ctx, counter); err != nil {
			return fmt.Errorf("failed to create attempt counter: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get attempt counter: %w", err)
	}

	if counter.Count < t.policy.MaxAttempts {
		counter.Count++
	}
	if err := t.store.Put(ctx, counter); err != nil {
		return fmt.Errorf("failed to update attempt counter: %w", err)
	}
	return nil
}
