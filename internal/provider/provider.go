package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

// Provider fetches server listings from one upstream VPN provider and
// normalizes them into the canonical domain.VPNServer shape. Implementations
// perform a single upstream attempt per call and do no caching; both are the
// aggregator's concern.
type Provider interface {
	Name() string
	FetchAll(ctx context.Context) ([]domain.VPNServer, error)
	FetchByCountry(ctx context.Context, countryCode string) ([]domain.VPNServer, error)
}

// Registry is a flat lookup table of providers keyed by name. Adding a
// provider is a pure addition: implement Provider and register it here.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a Registry holding the given providers
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[strings.ToLower(name)]
	return p, ok
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fetchBody issues a single GET against url and returns the response body.
// Transport failures and non-2xx statuses map to domain.ErrUpstreamUnavailable.
func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamUnavailable, err)
	}

	return body, nil
}

// filterByCountry keeps servers whose country code matches code
// (case-insensitive)
func filterByCountry(servers []domain.VPNServer, code string) []domain.VPNServer {
	code = strings.ToUpper(code)

	filtered := make([]domain.VPNServer, 0)
	for _, s := range servers {
		if strings.ToUpper(s.CountryCode) == code {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
