package latency

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

// testMeasurer builds a Measurer whose external dependencies are stubbed
func testMeasurer(fpingPresent bool) *Measurer {
	m := New()
	m.lookPath = func(string) (string, error) {
		if fpingPresent {
			return "/usr/bin/fping", nil
		}
		return "", errors.New("not found")
	}
	m.tcpTimeout = 100 * time.Millisecond
	return m
}

func TestMeasureFpingSuccess(t *testing.T) {
	m := testMeasurer(true)
	m.runFping = func(_ context.Context, hosts []string) (string, error) {
		return "a.example.com : xmt/rcv/%loss = 1/1/0%, min/avg/max = 5.0/5.0/5.0\n" +
			"b.example.com : xmt/rcv/%loss = 1/0/100%", nil
	}

	results, method, err := m.Measure(context.Background(), []string{"a.example.com", "b.example.com"}, MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodFping, method)

	require.Len(t, results, 2)
	assert.True(t, results["a.example.com"].OK)
	assert.Equal(t, 5.0, results["a.example.com"].LatencyMs)
	assert.False(t, results["b.example.com"].OK)
}

func TestMeasureAutoPrefersTCPWithoutFping(t *testing.T) {
	m := testMeasurer(false)
	m.dial = func(_ context.Context, host string, port int) (net.Conn, error) {
		c, s := net.Pipe()
		_ = s.Close()
		return c, nil
	}

	results, method, err := m.Measure(context.Background(), []string{"a.example.com"}, MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodTCP, method)
	assert.True(t, results["a.example.com"].OK)
}

func TestMeasureForcedFpingUnavailable(t *testing.T) {
	m := testMeasurer(false)

	_, _, err := m.Measure(context.Background(), []string{"a.example.com"}, MethodFping)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnreachable), "got %v", err)
}

func TestMeasureFpingFallsBackToTCP(t *testing.T) {
	m := testMeasurer(true)
	// All hosts fail the ICMP probe, as on networks that filter it.
	m.runFping = func(_ context.Context, hosts []string) (string, error) {
		return "a.example.com : xmt/rcv/%loss = 1/0/100%", nil
	}
	m.dial = func(_ context.Context, host string, port int) (net.Conn, error) {
		c, s := net.Pipe()
		_ = s.Close()
		return c, nil
	}

	results, method, err := m.Measure(context.Background(), []string{"a.example.com"}, MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodTCP, method)
	assert.True(t, results["a.example.com"].OK)
}

func TestMeasureTCPPortFallback(t *testing.T) {
	m := testMeasurer(false)

	var tried []int
	m.dial = func(_ context.Context, host string, port int) (net.Conn, error) {
		tried = append(tried, port)
		if port != 443 {
			return nil, errors.New("connection refused")
		}
		c, s := net.Pipe()
		_ = s.Close()
		return c, nil
	}

	results, method, err := m.Measure(context.Background(), []string{"a.example.com"}, MethodTCP)
	require.NoError(t, err)
	assert.Equal(t, MethodTCP, method)
	assert.True(t, results["a.example.com"].OK)

	// WireGuard port first, then the 443 fallback succeeds.
	assert.Equal(t, []int{WireGuardPort, 443}, tried)
}

func TestMeasureTCPAllPortsRefused(t *testing.T) {
	m := testMeasurer(false)
	m.dial = func(_ context.Context, host string, port int) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}

	results, _, err := m.Measure(context.Background(), []string{"a.example.com"}, MethodTCP)
	require.NoError(t, err)

	// Unreachable hosts are data, not errors.
	assert.False(t, results["a.example.com"].OK)
}

func TestMeasureEmptyHostList(t *testing.T) {
	m := testMeasurer(true)

	results, method, err := m.Measure(context.Background(), nil, MethodAuto)
	require.NoError(t, err)
	assert.Equal(t, MethodFping, method)
	assert.Empty(t, results)
}

func TestMeasureFpingBatching(t *testing.T) {
	m := testMeasurer(true)
	m.batchSize = 2

	var batches [][]string
	m.runFping = func(_ context.Context, hosts []string) (string, error) {
		batches = append(batches, hosts)
		return "", errors.New("fping exploded")
	}

	hosts := []string{"a", "b", "c", "d", "e"}

	results := m.measureFping(context.Background(), hosts)

	assert.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"e"}, batches[2])

	// A failed batch marks all of its hosts unreachable.
	require.Len(t, results, 5)
	for _, host := range hosts {
		assert.False(t, results[host].OK)
	}
}

func TestFpingAvailableIsCached(t *testing.T) {
	calls := 0

	m := New()
	m.lookPath = func(string) (string, error) {
		calls++
		return "", errors.New("not found")
	}

	assert.False(t, m.FpingAvailable())
	assert.False(t, m.FpingAvailable())
	assert.Equal(t, 1, calls)
}
