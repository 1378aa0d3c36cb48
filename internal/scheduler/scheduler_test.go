package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostwatch/internal/status"
)

type countingCycler struct {
	mu     sync.Mutex
	cycles int
}

func (c *countingCycler) RunCycle(ctx context.Context) *status.Snapshot {
	c.mu.Lock()
	c.cycles++
	n := c.cycles
	c.mu.Unlock()
	return &status.Snapshot{LastUpdated: time.Unix(int64(n), 0)}
}

func (c *countingCycler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

type recordingSink struct {
	mu    sync.Mutex
	snaps []*status.Snapshot
}

func (s *recordingSink) Publish(snap *status.Snapshot) {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

type fixedObservers struct {
	mu sync.Mutex
	n  int
}

func (f *fixedObservers) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *fixedObservers) set(n int) {
	f.mu.Lock()
	f.n = n
	f.mu.Unlock()
}

func TestNextInterval(t *testing.T) {
	observers := &fixedObservers{}
	s := New(&countingCycler{}, observers, time.Minute, 10*time.Minute, nil)

	assert.Equal(t, 10*time.Minute, s.NextInterval(), "no observers means idle cadence")

	observers.set(1)
	assert.Equal(t, time.Minute, s.NextInterval(), "any observer means active cadence")

	observers.set(0)
	assert.Equal(t, 10*time.Minute, s.NextInterval())
}

func TestRun_FirstCycleImmediate(t *testing.T) {
	cycler := &countingCycler{}
	sink := &recordingSink{}
	s := New(cycler, &fixedObservers{}, time.Hour, time.Hour, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The first cycle runs without waiting out an interval.
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, cycler.count())

	cancel()
	<-done
}

func TestRun_RepeatsAtInterval(t *testing.T) {
	cycler := &countingCycler{}
	sink := &recordingSink{}
	s := New(cycler, &fixedObservers{n: 1}, 5*time.Millisecond, time.Hour, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestRun_PublishesToAllSinksInOrder(t *testing.T) {
	cycler := &countingCycler{}
	first := &recordingSink{}
	second := &recordingSink{}
	s := New(cycler, &fixedObservers{}, time.Hour, time.Hour, nil, first, second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return first.count() == 1 && second.count() == 1
	}, time.Second, time.Millisecond)

	first.mu.Lock()
	second.mu.Lock()
	assert.Same(t, first.snaps[0], second.snaps[0])
	second.mu.Unlock()
	first.mu.Unlock()

	cancel()
	<-done
}

func TestRun_StopsOnCancel(t *testing.T) {
	cycler := &countingCycler{}
	s := New(cycler, &fixedObservers{}, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return cycler.count() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	assert.Equal(t, 1, cycler.count(), "no cycle should start after cancellation")
}
