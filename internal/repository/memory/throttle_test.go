package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/authkeeper-server/internal/model"
)

func TestThrottleStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	s := NewThrottleStore()

	_, err := s.Get(ctx, "ip:192.0.2.1")
	require.ErrorIs(t, err, model.ErrNotFound)

	counter := model.AttemptCounter{
		Key:           "ip:192.0.2.1",
		Count:         2,
		WindowResetAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.Put(ctx, counter))

	got, err := s.Get(ctx, "ip:192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	require.NoError(t, s.Delete(ctx, "ip:192.0.2.1"))
	_, err = s.Get(ctx, "ip:192.0.2.1")
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestThrottleStore_Sweep(t *testing.T) {
	ctx := context.Background()
	s := NewThrottleStore()
	now := time.Now()

	require.NoError(t, s.Put(ctx, model.AttemptCounter{Key: "stale", Count: 5, WindowResetAt: now.Add(-time.Second)}))
	require.NoError(t, s.Put(ctx, model.AttemptCounter{Key: "live", Count: 1, WindowResetAt: now.Add(time.Minute)}))

	removed, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = s.Get(ctx, "live")
	require.NoError(t, err)
}
