package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveEnforcesDailyLimit(t *testing.T) {
	l := NewLimiter(0, 2)
	ctx := context.Background()

	require.NoError(t, l.Reserve(ctx))
	require.NoError(t, l.Reserve(ctx))
	assert.ErrorIs(t, l.Reserve(ctx), ErrDailyLimitReached)
	assert.Equal(t, 0, l.Remaining())
}

func TestReserveResetsOnNewDay(t *testing.T) {
	day := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(0, 1)
	l.now = func() time.Time { return day }

	require.NoError(t, l.Reserve(context.Background()))
	assert.ErrorIs(t, l.Reserve(context.Background()), ErrDailyLimitReached)

	day = day.Add(24 * time.Hour)
	assert.NoError(t, l.Reserve(context.Background()))
}

func TestReserveRefundsOnCancelledWait(t *testing.T) {
	l := NewLimiter(1, 5)
	require.NoError(t, l.Reserve(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, l.Reserve(ctx))
	assert.Equal(t, 4, l.Remaining())
}

func TestUnlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Reserve(context.Background()))
	}
	assert.Equal(t, -1, l.Remaining())

	var nilLimiter *Limiter
	assert.NoError(t, nilLimiter.Reserve(context.Background()))
}
