package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopOutput = `top - 14:23:01 up 12 days,  3:44,  2 users,  load average: 0.42, 0.38, 0.35
Tasks: 312 total,   1 running, 311 sleeping,   0 stopped,   0 zombie
%Cpu(s):  4.5 us,  1.2 sy,  0.0 ni, 93.5 id,  0.6 wa,  0.0 hi,  0.2 si,  0.0 st
MiB Mem :  64216.3 total,  41253.9 free,  12860.5 used,  10101.9 buff/cache
MiB Swap:   8192.0 total,   8192.0 free,      0.0 used.  50497.4 avail Mem

    PID USER      PR  NI    VIRT    RES    SHR S  %CPU  %MEM     TIME+ COMMAND
      1 root      20   0  168340  13172   8432 S   0.0   0.0   4:12.33 systemd`

func TestParseTop(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantCPU     float64
		wantRAMPct  float64
		wantUsedMB  float64
		wantTotalMB float64
		wantErr     bool
	}{
		{
			name:        "full top output",
			output:      sampleTopOutput,
			wantCPU:     6.5,
			wantRAMPct:  20.0,
			wantUsedMB:  12860,
			wantTotalMB: 64216,
		},
		{
			name:        "comma decimal locale",
			output:      "%Cpu(s):  2,0 us,  1,0 sy,  0,0 ni, 90,5 id\nMiB Mem :   7821,4 total,   1023,0 free,   3910,7 used,   2887,7 buff/cache",
			wantCPU:     9.5,
			wantRAMPct:  50.0,
			wantUsedMB:  3910,
			wantTotalMB: 7821,
		},
		{
			name:    "cpu line only",
			output:  "%Cpu(s):  0.0 us,  0.0 sy,  0.0 ni, 100.0 id,  0.0 wa",
			wantCPU: 0.0,
		},
		{
			name:   "garbage output",
			output: "bash: top: command output mangled beyond recognition",

			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, err := ParseTop(tt.output)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, metrics)
			assert.InDelta(t, tt.wantCPU, metrics.CPUUsagePercent, 0.01)
			assert.InDelta(t, tt.wantRAMPct, metrics.RAMUsagePercent, 0.1)
			assert.Equal(t, tt.wantUsedMB, metrics.RAMUsedMB)
			assert.Equal(t, tt.wantTotalMB, metrics.RAMTotalMB)
		})
	}
}

func TestParseTop_MemoryLineOnly(t *testing.T) {
	metrics, err := ParseTop("MiB Mem :  16000.0 total,  8000.0 free,  4000.0 used,  4000.0 buff/cache")
	require.NoError(t, err)

	assert.Equal(t, 0.0, metrics.CPUUsagePercent)
	assert.Equal(t, 4000.0, metrics.RAMUsedMB)
	assert.Equal(t, 16000.0, metrics.RAMTotalMB)
	assert.InDelta(t, 25.0, metrics.RAMUsagePercent, 0.01)
}
