package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// FakeClock advances instantly on Sleep. It records every requested wait.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time

	// Sleeps contains every duration passed to Sleep, oldest first.
	Sleeps []time.Duration
	// OnSleep, if set, is called with the 1-based sleep count before the
	// clock advances. Tests use it to cancel a context mid-phase.
	OnSleep func(n int)
}

// NewFakeClock creates a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the fake time by d unless ctx is done.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.Sleeps = append(c.Sleeps, d)
	n := len(c.Sleeps)
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// Total returns the sum of all recorded sleeps.
func (c *FakeClock) Total() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.Sleeps {
		total += d
	}
	return total
}

// FakePublisher records published readings for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Readings contains every reading passed to Publish, including failed ones.
	Readings []logic.Reading
	// PublishError, if set, is returned by every Publish call.
	PublishError error
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the reading.
func (f *FakePublisher) Publish(ctx context.Context, r logic.Reading) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Readings = append(f.Readings, r)
	return f.PublishError
}

// FakeObserver records phase changes and completed cycles.
type FakeObserver struct {
	mu sync.Mutex

	Phases      []Phase
	Readings    []logic.Reading
	PublishErrs []error
	Failures    []error
}

// PhaseChanged records p.
func (o *FakeObserver) PhaseChanged(p Phase) {
	o.mu.Lock()
	o.Phases = append(o.Phases, p)
	o.mu.Unlock()
}

// CycleCompleted records the reading and its publish outcome.
func (o *FakeObserver) CycleCompleted(r logic.Reading, publishErr error) {
	o.mu.Lock()
	o.Readings = append(o.Readings, r)
	o.PublishErrs = append(o.PublishErrs, publishErr)
	o.mu.Unlock()
}

// SensorFailed records err.
func (o *FakeObserver) SensorFailed(err error) {
	o.mu.Lock()
	o.Failures = append(o.Failures, err)
	o.mu.Unlock()
}
