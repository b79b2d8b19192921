package latency

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

// Measurement methods
const (
	MethodAuto  = "auto"
	MethodFping = "fping"
	MethodTCP   = "tcp"
)

// WireGuardPort is the default WireGuard port, probed first by the
// TCP-connect strategy
const WireGuardPort = 51820

const (
	// fping single-probe timeout per host, in milliseconds
	fpingTimeoutMs = 1000

	// Hosts per fping invocation, sized to stay well under the kernel
	// argument-length limit
	fpingBatchSize = 500

	defaultTCPTimeout = 3 * time.Second

	// Upper bound on simultaneous TCP probes, so large candidate sets
	// cannot exhaust sockets or file descriptors
	defaultMaxInFlight = 50
)

// Ports tried in order after the WireGuard port is refused or times out
var defaultPorts = []int{WireGuardPort, 443, 80, 22}

// Result is the outcome of probing a single host
type Result struct {
	Host      string
	LatencyMs float64
	OK        bool
}

// Measurer probes reachability and round-trip time of a set of hosts using
// either bulk fping or TCP connect, with automatic fallback. Per-host
// failures are reported as data, never as errors.
type Measurer struct {
	lookPath    func(file string) (string, error)
	runFping    func(ctx context.Context, hosts []string) (string, error)
	dial        func(ctx context.Context, host string, port int) (net.Conn, error)
	ports       []int
	batchSize   int
	maxInFlight int64
	tcpTimeout  time.Duration

	mu         sync.Mutex
	fpingKnown bool
	fpingFound bool
}

// New creates a Measurer with default strategy settings
func New() *Measurer {
	m := &Measurer{
		lookPath:    exec.LookPath,
		ports:       defaultPorts,
		batchSize:   fpingBatchSize,
		maxInFlight: defaultMaxInFlight,
		tcpTimeout:  defaultTCPTimeout,
	}
	m.runFping = m.execFping
	m.dial = func(ctx context.Context, host string, port int) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	}
	return m
}

// NewWithMaxInFlight creates a Measurer with a custom bound on simultaneous
// TCP probes; n < 1 keeps the default
func NewWithMaxInFlight(n int64) *Measurer {
	m := New()
	if n > 0 {
		m.maxInFlight = n
	}
	return m
}

// FpingAvailable reports whether the fping binary is present on this host.
// The lookup result is cached for the process lifetime.
func (m *Measurer) FpingAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fpingKnown {
		_, err := m.lookPath("fping")
		m.fpingFound = err == nil
		m.fpingKnown = true

		if m.fpingFound {
			log.Println("[Latency] fping detected, using it for bulk measurements")
		} else {
			log.Println("[Latency] fping not found, using TCP connect for measurements")
		}
	}

	return m.fpingFound
}

// Measure probes all hosts with the requested method and returns per-host
// results plus the method that actually produced them. With MethodAuto the
// fping strategy is chosen when available; a forced MethodFping without the
// binary fails with domain.ErrUpstreamUnreachable.
func (m *Measurer) Measure(ctx context.Context, hosts []string, method string) (map[string]Result, string, error) {
	resolved := method
	switch method {
	case MethodAuto:
		if m.FpingAvailable() {
			resolved = MethodFping
		} else {
			resolved = MethodTCP
		}
	case MethodFping:
		if !m.FpingAvailable() {
			return nil, "", fmt.Errorf("%w: fping is not available on this host", domain.ErrUpstreamUnreachable)
		}
	case MethodTCP:
	default:
		resolved = MethodTCP
	}

	if len(hosts) == 0 {
		return map[string]Result{}, resolved, nil
	}

	log.Printf("[Latency] measuring %d hosts using method=%s", len(hosts), resolved)

	if resolved == MethodFping {
		results := m.measureFping(ctx, hosts)
		if countSuccessful(results) > 0 {
			return results, MethodFping, nil
		}

		// Zero successes usually means ICMP is filtered; fall through
		// to TCP connect within the same call.
		log.Println("[Latency] fping returned no successful results, falling back to TCP")
		resolved = MethodTCP
	}

	return m.measureTCP(ctx, hosts), resolved, nil
}

func countSuccessful(results map[string]Result) int {
	count := 0
	for _, r := range results {
		if r.OK {
			count++
		}
	}
	return count
}
