package probe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostwatch/internal/errors"
	"hostwatch/internal/sshx"
)

const runnerTopOutput = `%Cpu(s):  4.5 us,  1.2 sy,  0.0 ni, 93.5 id,  0.6 wa
MiB Mem :  64216.3 total,  41253.9 free,  12860.5 used,  10101.9 buff/cache`

// fakeConn serves scripted results per command and records the order
// commands were issued in.
type fakeConn struct {
	results map[string]*sshx.ExecResult
	errs    map[string]error
	calls   []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		results: map[string]*sshx.ExecResult{
			ReachabilityCommand: {},
			MetricsCommand:      {Stdout: runnerTopOutput},
		},
		errs: make(map[string]error),
	}
}

func (c *fakeConn) Exec(ctx context.Context, cmd string) (*sshx.ExecResult, error) {
	c.calls = append(c.calls, cmd)
	if err := c.errs[cmd]; err != nil {
		return nil, err
	}
	if result := c.results[cmd]; result != nil {
		return result, nil
	}
	return &sshx.ExecResult{}, nil
}

type fakeSource struct {
	conn        *fakeConn
	getErr      error
	invalidated []string
}

func (s *fakeSource) Get(ctx context.Context, alias string) (Conn, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.conn, nil
}

func (s *fakeSource) Invalidate(alias string) {
	s.invalidated = append(s.invalidated, alias)
}

func testRunner(source ConnSource) *Runner {
	return newRunner(source, time.Second, nil)
}

func TestProbe_MetricsOnly(t *testing.T) {
	conn := newFakeConn()
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "worker-02", false)
	require.NoError(t, err)

	require.NotNil(t, result.Metrics)
	assert.InDelta(t, 6.5, result.Metrics.CPUUsagePercent, 0.01)
	assert.Nil(t, result.Gpus)
	assert.Empty(t, result.Degraded)

	// Reachability gates the battery; no GPU command without checkGPU.
	assert.Equal(t, []string{ReachabilityCommand, MetricsCommand}, conn.calls)
	assert.Empty(t, source.invalidated)
}

func TestProbe_FullGpuBattery(t *testing.T) {
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
	conn.results[GpuQueryCommand] = &sshx.ExecResult{
		Stdout: "0, NVIDIA RTX A6000, 87, 32510, 49140, 71, 300.00, 287.45\n" +
			"1, NVIDIA RTX A6000, 0, 3, 49140, 34, 300.00, 21.17",
	}
	conn.results[GpuProcessCommand(0)] = &sshx.ExecResult{Stdout: "12345, python3, 30512"}
	conn.results[GpuProcessCommand(1)] = &sshx.ExecResult{}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
	require.NoError(t, err)

	require.Len(t, result.Gpus, 2)
	require.Len(t, result.Gpus[0].Processes, 1)
	assert.Equal(t, "python3", result.Gpus[0].Processes[0].Command)
	assert.Empty(t, result.Gpus[1].Processes)
	assert.Empty(t, result.Degraded)

	assert.Equal(t, []string{
		ReachabilityCommand,
		MetricsCommand,
		GpuDetectCommand,
		GpuQueryCommand,
		GpuProcessCommand(0),
		GpuProcessCommand(1),
	}, conn.calls)
}

func TestProbe_HeadlessHostSkipsGpuQuery(t *testing.T) {
	// `command -v nvidia-smi` exits 1 on a host without the tool; that's
	// a headless machine, not a failure.
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{ExitCode: 1}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "worker-02", true)
	require.NoError(t, err)

	assert.Nil(t, result.Gpus)
	assert.Empty(t, result.Degraded)
	assert.NotContains(t, conn.calls, GpuQueryCommand)
	assert.Empty(t, source.invalidated)
}

func TestProbe_NoRunningProcessesStderr(t *testing.T) {
	// Some driver versions exit non-zero with "No running processes
	// found" on stderr; that means an empty list, not a degradation.
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
	conn.results[GpuQueryCommand] = &sshx.ExecResult{
		Stdout: "0, Tesla V100-SXM2-16GB, 42, 8192, 16384, 65, 250.00, 187.30",
	}
	conn.results[GpuProcessCommand(0)] = &sshx.ExecResult{
		ExitCode: 6,
		Stderr:   "No running processes found",
	}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
	require.NoError(t, err)

	require.Len(t, result.Gpus, 1)
	assert.Empty(t, result.Gpus[0].Processes)
	assert.Empty(t, result.Degraded)
}

func TestProbe_GpuQueryFailureDegrades(t *testing.T) {
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
	conn.results[GpuQueryCommand] = &sshx.ExecResult{ExitCode: 9}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
	require.NoError(t, err)

	require.NotNil(t, result.Metrics, "metrics survive a failed GPU query")
	assert.Nil(t, result.Gpus)
	assert.Equal(t, "GPU query exited with code 9", result.DegradedMessage())
}

func TestProbe_ProcessQueryFailureDegrades(t *testing.T) {
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
	conn.results[GpuQueryCommand] = &sshx.ExecResult{
		Stdout: "0, Tesla V100-SXM2-16GB, 42, 8192, 16384, 65, 250.00, 187.30",
	}
	conn.results[GpuProcessCommand(0)] = &sshx.ExecResult{ExitCode: 1, Stderr: "mystery failure"}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
	require.NoError(t, err)

	require.Len(t, result.Gpus, 1)
	assert.Equal(t, "process query for GPU 0 exited with code 1", result.DegradedMessage())
}

func TestProbe_TransportErrorInvalidates(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
	}{
		{"reachability transport failure", ReachabilityCommand},
		{"metrics transport failure", MetricsCommand},
		{"gpu detect transport failure", GpuDetectCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
			conn.errs[tt.cmd] = errors.New(errors.ErrUnreachable, "connection reset", "")
			source := &fakeSource{conn: conn}

			_, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrUnreachable))
			assert.Equal(t, []string{"gpu-01"}, source.invalidated,
				"a broken channel must not be reused next cycle")
		})
	}
}

func TestProbe_ReachabilityExitCodeIsCommandError(t *testing.T) {
	conn := newFakeConn()
	conn.results[ReachabilityCommand] = &sshx.ExecResult{ExitCode: 127}
	source := &fakeSource{conn: conn}

	_, err := testRunner(source).Probe(context.Background(), "worker-02", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCommand))
	// The session itself worked, so the connection stays pooled.
	assert.Empty(t, source.invalidated)
}

func TestProbe_EmptyTopOutputIsCommandError(t *testing.T) {
	conn := newFakeConn()
	conn.results[MetricsCommand] = &sshx.ExecResult{Stdout: "   "}
	source := &fakeSource{conn: conn}

	_, err := testRunner(source).Probe(context.Background(), "worker-02", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCommand))
}

func TestProbe_UnparseableGpuOutputDegrades(t *testing.T) {
	conn := newFakeConn()
	conn.results[GpuDetectCommand] = &sshx.ExecResult{Stdout: "/usr/bin/nvidia-smi"}
	conn.results[GpuQueryCommand] = &sshx.ExecResult{Stdout: "one,two,three,four,five,six,seven,not-an-index"}
	source := &fakeSource{conn: conn}

	result, err := testRunner(source).Probe(context.Background(), "gpu-01", true)
	require.NoError(t, err)

	assert.Nil(t, result.Gpus)
	require.Len(t, result.Degraded, 1)
	assert.Contains(t, result.Degraded[0], "no line matched")
}

func TestProbe_GetFailurePropagates(t *testing.T) {
	source := &fakeSource{getErr: errors.New(errors.ErrAuth, "rejected", "")}

	_, err := testRunner(source).Probe(context.Background(), "worker-02", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuth))
}
