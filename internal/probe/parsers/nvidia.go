package parsers

import (
	"strconv"
	"strings"

	"hostwatch/internal/errors"
	"hostwatch/internal/status"
)

// gpuQueryFields is the column count of the GPU query CSV:
// index,name,utilization.gpu,memory.used,memory.total,temperature.gpu,power.limit,power.draw
const gpuQueryFields = 8

// processQueryFields is the column count of the compute-apps CSV:
// pid,process_name,used_gpu_memory
const processQueryFields = 3

// ParseGpuQuery parses the headerless CSV from the GPU query command into
// GpuStatus values, one per line. Empty output (or a known "no GPU here"
// message) yields nil with no error; malformed lines are skipped; output
// where no line parses is a PARSE error.
func ParseGpuQuery(output string) ([]status.GpuStatus, error) {
	output = strings.TrimSpace(output)
	if output == "" || looksLikeNoGpu(output) {
		return nil, nil
	}

	lines := strings.Split(output, "\n")
	gpus := make([]status.GpuStatus, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitCSV(line)
		if len(fields) != gpuQueryFields {
			continue
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		util, errUtil := parseMaybeNA(fields[2])
		memUsed, errMemUsed := strconv.Atoi(fields[3])
		memTotal, errMemTotal := strconv.Atoi(fields[4])
		temp, errTemp := parseMaybeNA(fields[5])
		powerLimit, errLimit := parseMaybeNA(fields[6])
		powerDraw, errDraw := parseMaybeNA(fields[7])

		// Memory figures are the one thing we refuse to fake.
		if errMemUsed != nil || errMemTotal != nil {
			continue
		}
		if errUtil != nil {
			util = 0
		}
		if errTemp != nil {
			temp = 0
		}
		if errLimit != nil {
			powerLimit = 0
		}
		if errDraw != nil {
			powerDraw = 0
		}

		gpus = append(gpus, status.GpuStatus{
			Index:              index,
			Name:               fields[1],
			UtilizationPercent: util,
			MemoryUsedMiB:      memUsed,
			MemoryTotalMiB:     memTotal,
			TemperatureC:       temp,
			PowerLimitW:        powerLimit,
			PowerDrawW:         powerDraw,
			Processes:          []status.GpuProcess{},
		})
	}

	if len(gpus) == 0 {
		return nil, errors.New(errors.ErrParse,
			"nvidia-smi produced output but no line matched the expected columns",
			"")
	}

	return gpus, nil
}

// ParseGpuProcesses parses the per-GPU compute-apps CSV. Empty output is
// a valid state (no running processes), not an error.
func ParseGpuProcesses(output string) []status.GpuProcess {
	processes := []status.GpuProcess{}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitCSV(line)
		if len(fields) != processQueryFields {
			continue
		}

		pid, errPid := strconv.Atoi(fields[0])
		mem, errMem := strconv.Atoi(fields[2])
		if errPid != nil || errMem != nil {
			continue
		}

		processes = append(processes, status.GpuProcess{
			PID:              pid,
			Command:          fields[1],
			UsedGpuMemoryMiB: mem,
		})
	}

	return processes
}

// looksLikeNoGpu reports whether the output is a known indicator that the
// host simply has no usable GPU rather than a parseable GPU list.
func looksLikeNoGpu(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "no devices") ||
		strings.Contains(lower, "command not found") ||
		strings.Contains(lower, "has failed") ||
		strings.Contains(lower, "driver") && strings.Contains(lower, "error")
}

// splitCSV splits a comma-separated line and trims each field.
func splitCSV(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseMaybeNA parses a float field that nvidia-smi may report as "[N/A]".
func parseMaybeNA(s string) (float64, error) {
	if s == "" || s == "[N/A]" {
		return 0, errors.New(errors.ErrParse, "field not available", "")
	}
	return strconv.ParseFloat(s, 64)
}
