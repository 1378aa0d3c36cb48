// Package parsers turns raw remote command output into typed metrics.
// Parsing is defensive: malformed rows are skipped and partial results
// are preferred over failures, but output that matches nothing of the
// expected schema is an error the caller can classify.
package parsers

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"hostwatch/internal/errors"
	"hostwatch/internal/status"
)

// Some locales render top's numbers with a comma decimal separator, so
// both forms are accepted.
var (
	cpuIdleRe = regexp.MustCompile(`%Cpu\(s\):\s*.*?(\d+[,.]\d+)\s+id`)
	memRe     = regexp.MustCompile(`MiB Mem\s*:\s*(\d+[,.]\d+)\s+total,\s*(\d+[,.]\d+)\s+free,\s*(\d+[,.]\d+)\s+used,\s*(\d+[,.]\d+)\s+buff/cache`)
)

// ParseTop extracts CPU and RAM utilization from `top -bn1` output.
// A missing CPU or memory line degrades that field; output matching
// neither is a PARSE error.
func ParseTop(output string) (*status.HostMetrics, error) {
	if strings.TrimSpace(output) == "" {
		return nil, errors.New(errors.ErrParse,
			"top produced no output",
			"")
	}

	metrics := &status.HostMetrics{}
	parsedAny := false

	if m := cpuIdleRe.FindStringSubmatch(output); m != nil {
		if idle, err := parseLocaleFloat(m[1]); err == nil {
			metrics.CPUUsagePercent = round1(100.0 - idle)
			parsedAny = true
		}
	}

	if m := memRe.FindStringSubmatch(output); m != nil {
		total, errTotal := parseLocaleFloat(m[1])
		used, errUsed := parseLocaleFloat(m[3])
		if errTotal == nil && errUsed == nil {
			metrics.RAMTotalMB = math.Trunc(total)
			metrics.RAMUsedMB = math.Trunc(used)
			if total > 0 {
				metrics.RAMUsagePercent = round1(used / total * 100.0)
			}
			parsedAny = true
		}
	}

	if !parsedAny {
		return nil, errors.New(errors.ErrParse,
			"top output matched neither the CPU nor the memory line",
			"")
	}

	return metrics, nil
}

// parseLocaleFloat parses a float that may use ',' as decimal separator.
func parseLocaleFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// round1 rounds to one decimal place, matching the precision top reports.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
