package latency

import (
	"strconv"
	"strings"
)

// parseFpingOutput parses fping's per-host diagnostic summary into results.
// It is a pure function so it can be tested without invoking fping.
//
// Expected line formats:
//
//	host : xmt/rcv/%loss = 1/1/0%, min/avg/max = 10.5/10.5/10.5
//	host : xmt/rcv/%loss = 1/0/100%
func parseFpingOutput(output string) map[string]Result {
	results := make(map[string]Result)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 2 {
			continue
		}
		host := strings.TrimSpace(parts[0])
		if host == "" {
			continue
		}

		if strings.Contains(line, "100%") {
			results[host] = Result{Host: host}
			continue
		}

		avg, ok := parseFpingAvg(parts[1])
		if !ok {
			continue
		}

		results[host] = Result{Host: host, LatencyMs: avg, OK: true}
	}

	return results
}

// parseFpingAvg extracts the avg figure from a "min/avg/max = a/b/c" summary
func parseFpingAvg(summary string) (float64, bool) {
	idx := strings.Index(summary, "min/avg/max")
	if idx == -1 {
		return 0, false
	}

	rest := strings.TrimSpace(summary[idx+len("min/avg/max"):])
	rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))

	fields := strings.Split(rest, "/")
	if len(fields) < 3 {
		return 0, false
	}

	avg, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return 0, false
	}

	return avg, true
}
