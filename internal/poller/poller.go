// Package poller runs one full collection cycle over the fleet: jump
// host first, then every monitored host in bounded parallel, assembled
// into a single snapshot in configuration order.
package poller

import (
	"context"
	"sync"
	"time"

	"hostwatch/internal/config"
	"hostwatch/internal/errors"
	"hostwatch/internal/logger"
	"hostwatch/internal/probe"
	"hostwatch/internal/status"
)

// Prober runs the probe battery against one host by alias.
type Prober interface {
	Probe(ctx context.Context, alias string, checkGPU bool) (*probe.Result, error)
}

// skippedMessage is the error_message attached to hosts that were not
// probed because the jump host was unavailable.
const skippedMessage = "jump host unavailable"

// Poller collects the fleet's state, one cycle at a time.
type Poller struct {
	cfg    *config.Config
	prober Prober
	log    logger.Logger
}

// New creates a poller over the given configuration and prober.
func New(cfg *config.Config, prober Prober, log logger.Logger) *Poller {
	if log == nil {
		log = logger.Noop()
	}
	return &Poller{cfg: cfg, prober: prober, log: log}
}

// RunCycle probes the fleet once and returns the resulting snapshot,
// stamped with the time the cycle started.
// When a jump host is configured and found unavailable, no monitored
// host is contacted: they are all reported as skipped.
func (p *Poller) RunCycle(ctx context.Context) *status.Snapshot {
	started := time.Now()
	snap := &status.Snapshot{}

	monitored := p.cfg.Monitored()

	if p.cfg.JumpHost != "" {
		jump := p.probeHost(ctx, p.jumpHostConfig())
		snap.Data.JumpHostStatus = &jump

		if jump.State != status.StateUp {
			p.log.Warn("jump host %s is %s, skipping %d monitored host(s)",
				p.cfg.JumpHost, jump.State, len(monitored))
			snap.Data.MonitoredHostsStatus = skipAll(monitored)
			snap.LastUpdated = started
			return snap
		}
	}

	snap.Data.MonitoredHostsStatus = p.probeMonitored(ctx, monitored)
	snap.LastUpdated = started

	p.log.Debug("cycle finished in %s", time.Since(started).Round(time.Millisecond))
	return snap
}

// probeMonitored probes every monitored host concurrently, capped by
// MaxParallelProbes, and returns results in configuration order. One
// host's failure never touches another's slot.
func (p *Poller) probeMonitored(ctx context.Context, hosts []config.HostConfig) []status.HostStatus {
	results := make([]status.HostStatus, len(hosts))
	sem := make(chan struct{}, p.cfg.MaxParallelProbes)

	var wg sync.WaitGroup
	for i, hc := range hosts {
		wg.Add(1)
		go func(i int, hc config.HostConfig) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = p.probeHost(ctx, hc)
		}(i, hc)
	}
	wg.Wait()

	return results
}

// probeHost probes a single host and maps the outcome onto a HostStatus.
func (p *Poller) probeHost(ctx context.Context, hc config.HostConfig) status.HostStatus {
	hs := status.HostStatus{Hostname: hc.Alias}

	result, err := p.prober.Probe(ctx, hc.Alias, hc.CheckGPU)
	if err != nil {
		hs.State = stateForError(err)
		hs.ErrorMessage = errors.Describe(err)
		hs.FailureCode = errors.CodeOf(err)
		if hs.FailureCode == "" {
			hs.FailureCode = errors.ErrUnreachable
		}
		p.log.Debug("probe %s: %s (%s)", hc.Alias, hs.State, hs.FailureCode)
		return hs
	}

	hs.State = status.StateUp
	hs.Metrics = result.Metrics
	if hc.CheckGPU {
		hs.Gpus = result.Gpus
		if hs.Gpus == nil {
			hs.Gpus = []status.GpuStatus{}
		}
	}
	if len(result.Degraded) > 0 {
		hs.ErrorMessage = result.DegradedMessage()
	}
	return hs
}

// jumpHostConfig returns the jump host's entry. Validation guarantees it
// exists whenever JumpHost is set. The jump host is only ever checked for
// liveness and load, never for GPUs.
func (p *Poller) jumpHostConfig() config.HostConfig {
	hc, _ := p.cfg.ByAlias(p.cfg.JumpHost)
	hc.CheckGPU = false
	return hc
}

// stateForError maps an error classification onto a host state:
// connectivity-class failures mean down, probe-class failures mean the
// host answered but could not be measured.
func stateForError(err error) status.State {
	switch errors.CodeOf(err) {
	case errors.ErrCommand, errors.ErrParse:
		return status.StateError
	default:
		return status.StateDown
	}
}

// skipAll marks every host as skipped without attempting a connection.
func skipAll(hosts []config.HostConfig) []status.HostStatus {
	statuses := make([]status.HostStatus, 0, len(hosts))
	for _, hc := range hosts {
		statuses = append(statuses, status.HostStatus{
			Hostname:     hc.Alias,
			State:        status.StateSkipped,
			ErrorMessage: skippedMessage,
		})
	}
	return statuses
}
