package probe

import "fmt"

// Remote introspection commands, run in this order per probe.
const (
	// ReachabilityCommand verifies the session works at all.
	ReachabilityCommand = "exit 0"

	// MetricsCommand produces the CPU and memory summary lines.
	MetricsCommand = "top -bn1"

	// GpuDetectCommand checks whether the GPU query tool exists. Exit
	// code 1 here means a headless host, not a failure.
	GpuDetectCommand = "command -v nvidia-smi"

	// GpuQueryCommand lists every GPU with its utilization, memory,
	// temperature, and power figures as headerless CSV.
	GpuQueryCommand = "nvidia-smi --query-gpu=index,name,utilization.gpu,memory.used,memory.total,temperature.gpu,power.limit,power.draw --format=csv,noheader,nounits"
)

// GpuProcessCommand returns the per-GPU compute process query.
func GpuProcessCommand(index int) string {
	return fmt.Sprintf("nvidia-smi -i %d --query-compute-apps=pid,process_name,used_gpu_memory --format=csv,noheader,nounits", index)
}
