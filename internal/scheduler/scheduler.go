// Package scheduler drives the poll loop: run a cycle, publish it, then
// sleep for an interval chosen by how many observers are connected.
package scheduler

import (
	"context"
	"time"

	"hostwatch/internal/logger"
	"hostwatch/internal/status"
)

// Cycler produces one fresh snapshot per call. Cycles never overlap:
// the scheduler calls it from a single loop.
type Cycler interface {
	RunCycle(ctx context.Context) *status.Snapshot
}

// Sink receives each completed snapshot.
type Sink interface {
	Publish(snap *status.Snapshot)
}

// ObserverCounter reports how many observers are currently connected.
type ObserverCounter interface {
	Count() int
}

// Scheduler owns the polling cadence. With observers connected it polls
// at the active interval, otherwise at the slower idle interval; the
// choice is re-evaluated after every cycle so a new observer shortens
// the very next wait.
type Scheduler struct {
	cycler    Cycler
	sinks     []Sink
	observers ObserverCounter
	active    time.Duration
	idle      time.Duration
	log       logger.Logger
}

// New creates a scheduler publishing each cycle's snapshot to the given
// sinks in order.
func New(cycler Cycler, observers ObserverCounter, active, idle time.Duration, log logger.Logger, sinks ...Sink) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{
		cycler:    cycler,
		sinks:     sinks,
		observers: observers,
		active:    active,
		idle:      idle,
		log:       log,
	}
}

// Run polls until the context is cancelled. The first cycle starts
// immediately. If the context is cancelled mid-cycle, the in-flight
// probes abort and the partial snapshot is discarded.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-timer.C:
		}

		snap := s.cycler.RunCycle(ctx)
		if ctx.Err() != nil {
			s.log.Info("scheduler stopping")
			return
		}
		for _, sink := range s.sinks {
			sink.Publish(snap)
		}

		interval := s.NextInterval()
		s.log.Debug("next cycle in %s (%d observer(s))", interval, s.observers.Count())
		timer.Reset(interval)
	}
}

// NextInterval returns the wait before the next cycle given the current
// observer count.
func (s *Scheduler) NextInterval() time.Duration {
	if s.observers.Count() > 0 {
		return s.active
	}
	return s.idle
}
