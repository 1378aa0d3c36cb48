// Package engine wires the collection pipeline together: SSH pool,
// probe runner, poller, snapshot store, broadcaster, and scheduler.
package engine

import (
	"context"
	"time"

	"hostwatch/internal/broadcast"
	"hostwatch/internal/config"
	"hostwatch/internal/errors"
	"hostwatch/internal/logger"
	"hostwatch/internal/observability"
	"hostwatch/internal/poller"
	"hostwatch/internal/probe"
	"hostwatch/internal/scheduler"
	"hostwatch/internal/sshx"
	"hostwatch/internal/status"
	"hostwatch/internal/store"
)

// Engine is the assembled monitoring pipeline. Construction is the only
// fatal path: once an engine exists, host failures degrade snapshots but
// never stop the loop.
type Engine struct {
	cfg       *config.Config
	pool      *sshx.Pool
	store     *store.Store
	broadcast *broadcast.Broadcaster
	scheduler *scheduler.Scheduler
	metrics   *observability.Metrics
	log       logger.Logger
}

// New validates the configuration and assembles the pipeline. keyPEM is
// the SSH private key material; empty falls back to the SSH agent.
func New(cfg *config.Config, keyPEM string, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Noop()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	dialer, err := sshx.NewDialer(keyPEM, cfg.ConnectTimeout, cfg.KnownHostsFile)
	if err != nil {
		return nil, err
	}

	pool := sshx.NewPool(dialer, cfg.Hosts, log)
	runner := probe.NewRunner(pool, cfg.CommandTimeout, log)
	metrics := observability.NewMetrics()

	st := store.New(placeholder(cfg))
	bc := broadcast.New(st, log)

	p := poller.New(cfg, runner, log)
	cycler := &instrumentedCycler{poller: p, metrics: metrics, observers: bc}

	sched := scheduler.New(cycler, bc,
		cfg.ActiveInterval(), cfg.IdleInterval(), log, st, bc)

	return &Engine{
		cfg:       cfg,
		pool:      pool,
		store:     st,
		broadcast: bc,
		scheduler: sched,
		metrics:   metrics,
		log:       log,
	}, nil
}

// Run polls until the context is cancelled, then releases the pool.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting: %d host(s), jump=%q", len(e.cfg.Hosts), e.cfg.JumpHost)
	e.scheduler.Run(ctx)
	e.pool.Close()
	return nil
}

// Store exposes the snapshot store for read-only transports.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Broadcaster exposes the observer registry for streaming transports.
func (e *Engine) Broadcaster() *broadcast.Broadcaster {
	return e.broadcast
}

// Metrics exposes the self-monitoring registry.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// placeholder builds the initial all-"checking" snapshot from the config.
func placeholder(cfg *config.Config) *status.Snapshot {
	monitored := cfg.Monitored()
	aliases := make([]string, 0, len(monitored))
	for _, hc := range monitored {
		aliases = append(aliases, hc.Alias)
	}
	return status.Placeholder(cfg.JumpHost, aliases)
}

// cycleRunner is the poller surface the instrumentation needs.
type cycleRunner interface {
	RunCycle(ctx context.Context) *status.Snapshot
}

// instrumentedCycler wraps the poller with metrics recording.
type instrumentedCycler struct {
	poller    cycleRunner
	metrics   *observability.Metrics
	observers interface{ Count() int }
}

func (c *instrumentedCycler) RunCycle(ctx context.Context) *status.Snapshot {
	started := time.Now()
	snap := c.poller.RunCycle(ctx)

	c.metrics.CycleTotal.Inc()
	c.metrics.CycleDuration.Observe(time.Since(started).Seconds())
	c.metrics.Observers.Set(float64(c.observers.Count()))

	if snap.Data.JumpHostStatus != nil {
		c.record(*snap.Data.JumpHostStatus)
	}
	for _, hs := range snap.Data.MonitoredHostsStatus {
		c.record(hs)
	}
	return snap
}

func (c *instrumentedCycler) record(hs status.HostStatus) {
	up := 0.0
	if hs.State == status.StateUp {
		up = 1.0
	}
	c.metrics.HostUp.WithLabelValues(hs.Hostname).Set(up)
	if hs.State == status.StateDown || hs.State == status.StateError {
		c.metrics.ProbeFailuresTotal.WithLabelValues(hs.Hostname, failureCode(hs)).Inc()
	}
}

// failureCode picks the metric label for a failed host: the class the
// poller recorded, or a state-based fallback when none was carried.
func failureCode(hs status.HostStatus) string {
	if hs.FailureCode != "" {
		return hs.FailureCode
	}
	if hs.State == status.StateError {
		return errors.ErrCommand
	}
	return errors.ErrUnreachable
}
