package latency

import (
	"bytes"
	"context"
	"io"
	"log"
	"os/exec"
	"strconv"
	"time"
)

// measureFping probes hosts in batches of at most batchSize via the external
// fping utility. A batch that fails wholesale marks its hosts unreachable;
// the caller decides whether zero total successes warrant a TCP fallback.
func (m *Measurer) measureFping(ctx context.Context, hosts []string) map[string]Result {
	results := make(map[string]Result, len(hosts))

	total := (len(hosts) + m.batchSize - 1) / m.batchSize
	for i := 0; i < len(hosts); i += m.batchSize {
		batch := hosts[i:min(i+m.batchSize, len(hosts))]
		if total > 1 {
			log.Printf("[Latency] fping batch %d/%d (%d hosts)", i/m.batchSize+1, total, len(batch))
		}

		output, err := m.runFping(ctx, batch)
		if err != nil {
			log.Printf("[Latency] fping batch failed: %v", err)
		} else {
			for host, r := range parseFpingOutput(output) {
				results[host] = r
			}
		}

		// Hosts fping said nothing about count as failed.
		for _, host := range batch {
			if _, ok := results[host]; !ok {
				results[host] = Result{Host: host}
			}
		}
	}

	return results
}

// execFping invokes fping once for a batch of hosts: a single probe per host,
// a bounded per-host timeout, quiet mode, and elapsed-time output. fping
// writes its per-host summary to stderr and exits non-zero when any host is
// unreachable, so a non-zero exit with output is not an error.
func (m *Measurer) execFping(ctx context.Context, hosts []string) (string, error) {
	// Base time for process startup plus headroom per host for DNS
	// resolution and the probe itself.
	timeout := 10*time.Second + time.Duration(len(hosts))*50*time.Millisecond

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-c", "1", "-t", strconv.Itoa(fpingTimeoutMs), "-q", "-e"}
	args = append(args, hosts...)

	cmd := exec.CommandContext(ctx, "fping", args...)

	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() == 0 && err != nil {
		return "", err
	}

	return stderr.String(), nil
}
