// Package status defines the data model shared by the probing engine and
// the feed consumers: per-host results, GPU details, and the aggregated
// snapshot published after every poll cycle.
//
// Snapshots are immutable by convention. A cycle builds a fresh Snapshot,
// the store swaps its pointer, and readers never see a mutation in place.
package status

import "time"

// State is the probe outcome for a single host.
type State string

const (
	// StateChecking is the placeholder state before the first cycle completes.
	StateChecking State = "checking"
	// StateUp means the host was reachable and the probe succeeded.
	StateUp State = "up"
	// StateDown means the host was unreachable, timed out, or rejected auth.
	StateDown State = "down"
	// StateError means the host was reachable but probing it failed.
	StateError State = "error"
	// StateSkipped means no probe was attempted because the jump host was unavailable.
	StateSkipped State = "skipped"
)

// HostMetrics holds CPU and RAM utilization parsed from `top` output.
type HostMetrics struct {
	CPUUsagePercent float64 `json:"cpu_usage_percent"`
	RAMUsagePercent float64 `json:"ram_usage_percent"`
	RAMUsedMB       float64 `json:"ram_used_mb"`
	RAMTotalMB      float64 `json:"ram_total_mb"`
}

// GpuProcess is a single process occupying memory on a GPU.
type GpuProcess struct {
	PID              int    `json:"pid"`
	Command          string `json:"command"`
	UsedGpuMemoryMiB int    `json:"used_gpu_memory_mib"`
}

// GpuStatus holds the metrics of one GPU as reported by nvidia-smi.
type GpuStatus struct {
	Index              int          `json:"index"`
	Name               string       `json:"name"`
	TemperatureC       float64      `json:"temperature_c"`
	UtilizationPercent float64      `json:"utilization_percent"`
	PowerDrawW         float64      `json:"power_draw_w"`
	PowerLimitW        float64      `json:"power_limit_w"`
	MemoryUsedMiB      int          `json:"memory_used_mib"`
	MemoryTotalMiB     int          `json:"memory_total_mib"`
	Processes          []GpuProcess `json:"processes"`
}

// HostStatus is the per-host result of one poll cycle.
// Metrics and Gpus are populated only when the state is "up".
type HostStatus struct {
	Hostname     string       `json:"hostname"`
	State        State        `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Metrics      *HostMetrics `json:"metrics,omitempty"`
	Gpus         []GpuStatus  `json:"gpus,omitempty"`

	// FailureCode is the error class behind a down/error state. It feeds
	// the failure metrics and stays out of the feed JSON.
	FailureCode string `json:"-"`
}

// SnapshotData groups the jump host result with the monitored host results.
// MonitoredHostsStatus preserves configuration order across cycles.
type SnapshotData struct {
	JumpHostStatus       *HostStatus  `json:"jump_host_status,omitempty"`
	MonitoredHostsStatus []HostStatus `json:"monitored_hosts_status"`
}

// Snapshot is the aggregated, immutable result of one poll cycle.
// Its JSON form is the feed contract handed to the streaming transport.
type Snapshot struct {
	LastUpdated time.Time    `json:"last_updated"`
	Data        SnapshotData `json:"data"`
}

// Placeholder builds the pre-first-cycle snapshot: every configured host in
// the "checking" state, so a subscriber always has something to render.
func Placeholder(jumpAlias string, monitoredAliases []string) *Snapshot {
	snap := &Snapshot{LastUpdated: time.Now()}

	if jumpAlias != "" {
		snap.Data.JumpHostStatus = &HostStatus{Hostname: jumpAlias, State: StateChecking}
	}

	snap.Data.MonitoredHostsStatus = make([]HostStatus, 0, len(monitoredAliases))
	for _, alias := range monitoredAliases {
		snap.Data.MonitoredHostsStatus = append(snap.Data.MonitoredHostsStatus, HostStatus{
			Hostname: alias,
			State:    StateChecking,
		})
	}

	return snap
}
