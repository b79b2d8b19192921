package domain

import "errors"

// Error kinds surfaced by providers, the latency measurer and the aggregator.
// Callers wrap these with fmt.Errorf("...: %w", ...) and boundaries match
// with errors.Is; none of them is retried internally.
var (
	// ErrUpstreamUnavailable indicates a transport failure or non-2xx
	// response from a provider API
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDataParse indicates the upstream response did not match the
	// expected schema
	ErrDataParse = errors.New("upstream data parse failed")

	// ErrEmptyResult indicates no data survived filtering or pagination
	ErrEmptyResult = errors.New("no results")

	// ErrUpstreamUnreachable indicates every measurement attempt failed,
	// or a forced measurement strategy is not available on this host
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
)
