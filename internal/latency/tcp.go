package latency

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// measureTCP probes all hosts concurrently via TCP connect, bounded by
// maxInFlight simultaneous probes; excess probes wait for a slot
func (m *Measurer) measureTCP(ctx context.Context, hosts []string) map[string]Result {
	sem := semaphore.NewWeighted(m.maxInFlight)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Result, len(hosts))
	)

	for _, host := range hosts {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled while waiting for a slot; the
			// remaining hosts stay unmeasured.
			break
		}

		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer sem.Release(1)

			result := m.probeTCP(ctx, host)

			mu.Lock()
			results[host] = result
			mu.Unlock()
		}(host)
	}

	wg.Wait()

	// Hosts skipped by cancellation count as failed.
	for _, host := range hosts {
		if _, ok := results[host]; !ok {
			results[host] = Result{Host: host}
		}
	}

	return results
}

// probeTCP measures connection establishment time to host, trying the
// WireGuard port first and then the fallback ports sequentially; the first
// established connection wins. A host exhausting all ports is unreachable.
func (m *Measurer) probeTCP(ctx context.Context, host string) Result {
	for _, port := range m.ports {
		attemptCtx, cancel := context.WithTimeout(ctx, m.tcpTimeout)

		start := time.Now()
		conn, err := m.dial(attemptCtx, host, port)
		elapsed := time.Since(start)

		cancel()

		if err != nil {
			continue
		}
		_ = conn.Close()

		return Result{
			Host:      host,
			LatencyMs: float64(elapsed.Microseconds()) / 1000.0,
			OK:        true,
		}
	}

	return Result{Host: host}
}
