// Package probe executes the fixed battery of remote introspection
// commands against one host and turns the output into typed metrics.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hostwatch/internal/errors"
	"hostwatch/internal/logger"
	"hostwatch/internal/probe/parsers"
	"hostwatch/internal/sshx"
	"hostwatch/internal/status"
)

// Conn is an established session to one host.
type Conn interface {
	Exec(ctx context.Context, cmd string) (*sshx.ExecResult, error)
}

// ConnSource hands out host connections and drops broken ones.
type ConnSource interface {
	Get(ctx context.Context, alias string) (Conn, error)
	Invalidate(alias string)
}

// poolSource adapts the SSH pool to the ConnSource seam.
type poolSource struct {
	pool *sshx.Pool
}

func (s poolSource) Get(ctx context.Context, alias string) (Conn, error) {
	client, err := s.pool.Get(ctx, alias)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s poolSource) Invalidate(alias string) {
	s.pool.Invalidate(alias)
}

// Result is the outcome of one successful probe. Degraded notes record
// sub-results that could not be collected without failing the probe
// (e.g. the GPU query being unsupported).
type Result struct {
	Metrics  *status.HostMetrics
	Gpus     []status.GpuStatus
	Degraded []string
}

// DegradedMessage joins the degradation notes for the error_message field.
func (r *Result) DegradedMessage() string {
	return strings.Join(r.Degraded, "; ")
}

// Runner probes hosts through a shared connection source.
type Runner struct {
	source         ConnSource
	commandTimeout time.Duration
	log            logger.Logger
}

// NewRunner creates a prober over the given pool.
func NewRunner(pool *sshx.Pool, commandTimeout time.Duration, log logger.Logger) *Runner {
	return newRunner(poolSource{pool: pool}, commandTimeout, log)
}

func newRunner(source ConnSource, commandTimeout time.Duration, log logger.Logger) *Runner {
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Runner{
		source:         source,
		commandTimeout: commandTimeout,
		log:            log,
	}
}

// Probe runs the command battery against one host. Session and transport
// failures come back as UNREACHABLE/AUTH/TIMEOUT errors, command and
// parsing failures as COMMAND/PARSE; anything softer degrades the result
// instead of failing it.
func (r *Runner) Probe(ctx context.Context, alias string, checkGPU bool) (*Result, error) {
	conn, err := r.source.Get(ctx, alias)
	if err != nil {
		return nil, err
	}

	// Reachability first: a trivial command proving the session executes.
	reach, err := r.exec(ctx, conn, ReachabilityCommand)
	if err != nil {
		r.source.Invalidate(alias)
		return nil, err
	}
	if reach.ExitCode != 0 {
		return nil, errors.New(errors.ErrCommand,
			fmt.Sprintf("Reachability check on '%s' exited with code %d", alias, reach.ExitCode),
			"")
	}

	result := &Result{}

	if err := r.collectMetrics(ctx, conn, alias, result); err != nil {
		return nil, err
	}

	if checkGPU {
		if err := r.collectGpus(ctx, conn, alias, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// collectMetrics runs top and parses CPU/RAM figures into the result.
func (r *Runner) collectMetrics(ctx context.Context, conn Conn, alias string, result *Result) error {
	out, err := r.exec(ctx, conn, MetricsCommand)
	if err != nil {
		r.source.Invalidate(alias)
		return err
	}
	if out.ExitCode != 0 || strings.TrimSpace(out.Stdout) == "" {
		return errors.New(errors.ErrCommand,
			fmt.Sprintf("top on '%s' produced no usable output (exit %d)", alias, out.ExitCode),
			"")
	}

	metrics, err := parsers.ParseTop(out.Stdout)
	if err != nil {
		return err
	}
	result.Metrics = metrics
	return nil
}

// collectGpus runs the GPU battery: detect nvidia-smi, query the GPU
// list, then query each GPU's processes. A host without nvidia-smi gets
// empty GPUs, not an error.
func (r *Runner) collectGpus(ctx context.Context, conn Conn, alias string, result *Result) error {
	detect, err := r.exec(ctx, conn, GpuDetectCommand)
	if err != nil {
		r.source.Invalidate(alias)
		return err
	}
	if detect.ExitCode != 0 || strings.TrimSpace(detect.Stdout) == "" {
		r.log.Debug("nvidia-smi not found on %s, skipping GPU query", alias)
		return nil
	}

	query, err := r.exec(ctx, conn, GpuQueryCommand)
	if err != nil {
		r.source.Invalidate(alias)
		return err
	}
	if query.ExitCode != 0 {
		result.Degraded = append(result.Degraded,
			fmt.Sprintf("GPU query exited with code %d", query.ExitCode))
		return nil
	}

	gpus, err := parsers.ParseGpuQuery(query.Stdout)
	if err != nil {
		result.Degraded = append(result.Degraded, errors.Describe(err))
		return nil
	}

	for i := range gpus {
		procs, err := r.exec(ctx, conn, GpuProcessCommand(gpus[i].Index))
		if err != nil {
			r.source.Invalidate(alias)
			return err
		}
		if procs.ExitCode != 0 {
			// nvidia-smi reports "No running processes found" on stderr
			// with a non-zero exit on some driver versions; that's an
			// empty list, not a failure.
			if strings.Contains(procs.Stderr, "No running processes found") {
				continue
			}
			result.Degraded = append(result.Degraded,
				fmt.Sprintf("process query for GPU %d exited with code %d", gpus[i].Index, procs.ExitCode))
			continue
		}
		gpus[i].Processes = parsers.ParseGpuProcesses(procs.Stdout)
	}

	result.Gpus = gpus
	return nil
}

// exec runs one command under its own timeout slice of the cycle context.
func (r *Runner) exec(ctx context.Context, conn Conn, cmd string) (*sshx.ExecResult, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()
	return conn.Exec(cmdCtx, cmd)
}
