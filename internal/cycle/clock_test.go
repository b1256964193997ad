package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockSleep(t *testing.T) {
	c := RealClock()
	start := c.Now()
	assert.NoError(t, c.Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, c.Now().Sub(start), 10*time.Millisecond)
}

func TestRealClockSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := RealClock().Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRealClockSleepAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, RealClock().Sleep(ctx, 0), context.Canceled)
}

func TestFakeClockAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.NoError(t, c.Sleep(context.Background(), 4*time.Second))
	assert.NoError(t, c.Sleep(context.Background(), time.Second))
	assert.Equal(t, start.Add(5*time.Second), c.Now())
	assert.Equal(t, []time.Duration{4 * time.Second, time.Second}, c.Sleeps)
	assert.Equal(t, 5*time.Second, c.Total())
}

func TestFakeClockCancelledDoesNotAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sleep(ctx, time.Second), context.Canceled)
	assert.Equal(t, start, c.Now())
}
