package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sadewadee/wg-aggregator/internal/cache"
	"github.com/sadewadee/wg-aggregator/internal/domain"
	"github.com/sadewadee/wg-aggregator/internal/latency"
	"github.com/sadewadee/wg-aggregator/internal/provider"
)

// LatencyMeasurer probes a set of hosts and reports per-host results plus the
// method that produced them
type LatencyMeasurer interface {
	Measure(ctx context.Context, hosts []string, method string) (map[string]latency.Result, string, error)
}

// VPNService aggregates provider listings, caches them, and merges latency
// measurements onto copies of the cached entities
type VPNService struct {
	registry *provider.Registry
	cache    cache.Cache
	measurer LatencyMeasurer
	ttl      time.Duration
	group    singleflight.Group
}

// NewVPNService creates a VPNService. ttl applies uniformly to all cache keys.
func NewVPNService(registry *provider.Registry, c cache.Cache, measurer LatencyMeasurer, ttl time.Duration) *VPNService {
	return &VPNService{
		registry: registry,
		cache:    c,
		measurer: measurer,
		ttl:      ttl,
	}
}

// List returns one page of the provider's full server listing and the total
// count. A page beyond the available range fails with domain.ErrEmptyResult.
func (s *VPNService) List(ctx context.Context, providerName string, page, pageSize int) ([]domain.VPNServer, int, error) {
	servers, err := s.servers(ctx, providerName)
	if err != nil {
		return nil, 0, err
	}

	paged, err := paginate(servers, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	return paged, len(servers), nil
}

// ListByCountry returns one page of the provider's servers in the given
// country. No servers in that country fails with domain.ErrEmptyResult.
func (s *VPNService) ListByCountry(ctx context.Context, providerName, countryCode string, page, pageSize int) ([]domain.VPNServer, int, error) {
	servers, err := s.serversByCountry(ctx, providerName, countryCode)
	if err != nil {
		return nil, 0, err
	}
	if len(servers) == 0 {
		return nil, 0, fmt.Errorf("no servers for country %q with provider %q: %w",
			countryCode, providerName, domain.ErrEmptyResult)
	}

	paged, err := paginate(servers, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	return paged, len(servers), nil
}

// ListCountries derives the countries that currently have servers available
// for the provider, sorted by country code
func (s *VPNService) ListCountries(ctx context.Context, providerName string) ([]domain.CountryInfo, error) {
	servers, err := s.servers(ctx, providerName)
	if err != nil {
		return nil, err
	}
	return domain.CountriesFrom(servers), nil
}

// Top returns the limit best-ranked servers: ascending by latency when
// present, falling back to load; servers with neither rank last in their
// pre-sort order
func (s *VPNService) Top(ctx context.Context, providerName string, limit int, countryCode string) ([]domain.VPNServer, error) {
	servers, err := s.candidates(ctx, providerName, countryCode)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.VPNServer, len(servers))
	copy(ranked, servers)

	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := performanceKey(ranked[i]), performanceKey(ranked[j])
		return li < lj
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	return ranked, nil
}

// MeasureLatency probes up to limit candidates (0 = all) with the requested
// method and returns copies of the candidates annotated with measured
// latency. Unreachable hosts keep an absent latency and sort after all
// measured entries in their pre-measurement order.
func (s *VPNService) MeasureLatency(ctx context.Context, providerName, countryCode string, limit int, method string) (*domain.LatencyReport, error) {
	servers, err := s.candidates(ctx, providerName, countryCode)
	if err != nil {
		return nil, err
	}

	if limit > 0 && limit < len(servers) {
		servers = servers[:limit]
	}

	annotated, methodUsed, err := s.measureServers(ctx, servers, method)
	if err != nil {
		return nil, err
	}

	sortByLatency(annotated)

	report := &domain.LatencyReport{
		Total:   len(servers),
		Method:  methodUsed,
		Servers: annotated,
	}
	for _, srv := range annotated {
		report.Measured++
		if srv.Latency != nil {
			report.Successful++
		} else {
			report.Failed++
		}
	}

	log.Printf("[VPN] latency measurement complete: %d/%d successful (method=%s)",
		report.Successful, report.Total, methodUsed)

	return report, nil
}

// FindFastest measures up to measureCount candidates (0 = all, lowest load
// first) and returns the limit fastest reachable servers in ascending latency
// order. Excluded countries are dropped before candidate selection.
func (s *VPNService) FindFastest(ctx context.Context, providerName string, limit int, countryCode string, measureCount int, excludeCountries []string) ([]domain.VPNServer, error) {
	servers, err := s.candidates(ctx, providerName, countryCode)
	if err != nil {
		return nil, err
	}

	if len(excludeCountries) > 0 {
		excluded := make(map[string]struct{}, len(excludeCountries))
		for _, code := range excludeCountries {
			excluded[strings.ToUpper(code)] = struct{}{}
		}

		kept := servers[:0:0]
		for _, srv := range servers {
			if _, skip := excluded[srv.CountryCode]; !skip {
				kept = append(kept, srv)
			}
		}
		servers = kept
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("no candidates left after country filtering: %w", domain.ErrEmptyResult)
	}

	// Measure low-load servers first; they are the likeliest winners.
	ordered := make([]domain.VPNServer, len(servers))
	copy(ordered, servers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return loadOrDefault(ordered[i].Load) < loadOrDefault(ordered[j].Load)
	})

	if measureCount > 0 && measureCount < len(ordered) {
		ordered = ordered[:measureCount]
	}

	annotated, _, err := s.measureServers(ctx, ordered, latency.MethodAuto)
	if err != nil {
		return nil, err
	}

	reachable := make([]domain.VPNServer, 0, len(annotated))
	for _, srv := range annotated {
		if srv.Latency != nil {
			reachable = append(reachable, srv)
		}
	}

	if len(reachable) == 0 {
		return nil, fmt.Errorf("could not reach any of %d measured servers: %w",
			len(ordered), domain.ErrUpstreamUnreachable)
	}

	sort.SliceStable(reachable, func(i, j int) bool {
		return *reachable[i].Latency < *reachable[j].Latency
	})

	if limit > 0 && limit < len(reachable) {
		reachable = reachable[:limit]
	}

	return reachable, nil
}

// Providers returns the names of all registered providers
func (s *VPNService) Providers() []string {
	return s.registry.Names()
}

// candidates returns the provider's servers, optionally filtered by country;
// an empty filtered set fails with domain.ErrEmptyResult
func (s *VPNService) candidates(ctx context.Context, providerName, countryCode string) ([]domain.VPNServer, error) {
	if countryCode == "" {
		return s.servers(ctx, providerName)
	}

	servers, err := s.serversByCountry(ctx, providerName, countryCode)
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers for country %q with provider %q: %w",
			countryCode, providerName, domain.ErrEmptyResult)
	}
	return servers, nil
}

// measureServers probes the deduplicated hosts of servers and merges results
// onto copies; cached originals are never mutated
func (s *VPNService) measureServers(ctx context.Context, servers []domain.VPNServer, method string) ([]domain.VPNServer, string, error) {
	hosts := make([]string, 0, len(servers))
	seen := make(map[string]struct{}, len(servers))
	for _, srv := range servers {
		host := srv.Host()
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}

	results, methodUsed, err := s.measurer.Measure(ctx, hosts, method)
	if err != nil {
		return nil, "", err
	}

	annotated := make([]domain.VPNServer, 0, len(servers))
	for _, srv := range servers {
		if r, ok := results[srv.Host()]; ok && r.OK {
			annotated = append(annotated, srv.WithLatency(roundMs(r.LatencyMs)))
		} else {
			annotated = append(annotated, srv.WithoutLatency())
		}
	}

	return annotated, methodUsed, nil
}

// servers returns the provider's full listing, going upstream only on a cache
// miss; concurrent misses on one key share a single fetch
func (s *VPNService) servers(ctx context.Context, providerName string) ([]domain.VPNServer, error) {
	p, ok := s.registry.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("provider %q is not supported: %w", providerName, domain.ErrEmptyResult)
	}

	return s.cached(ctx, cache.Key("servers", p.Name()), func() ([]domain.VPNServer, error) {
		return p.FetchAll(ctx)
	})
}

// serversByCountry returns the provider's listing for one country, cached
// under its own key and computed from the cached full listing
func (s *VPNService) serversByCountry(ctx context.Context, providerName, countryCode string) ([]domain.VPNServer, error) {
	countryCode = strings.ToUpper(countryCode)

	p, ok := s.registry.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("provider %q is not supported: %w", providerName, domain.ErrEmptyResult)
	}

	return s.cached(ctx, cache.Key("servers", p.Name(), countryCode), func() ([]domain.VPNServer, error) {
		all, err := s.servers(ctx, providerName)
		if err != nil {
			return nil, err
		}

		filtered := make([]domain.VPNServer, 0)
		for _, srv := range all {
			if srv.CountryCode == countryCode {
				filtered = append(filtered, srv)
			}
		}
		return filtered, nil
	})
}

// cached implements get-or-populate on the byte cache with singleflight
// dedup of concurrent misses
func (s *VPNService) cached(ctx context.Context, key string, compute func() ([]domain.VPNServer, error)) ([]domain.VPNServer, error) {
	if data, err := s.cache.Get(ctx, key); err == nil {
		var servers []domain.VPNServer
		if err := json.Unmarshal(data, &servers); err == nil {
			return servers, nil
		}
		log.Printf("[VPN] discarding corrupt cache entry for %s", key)
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		servers, err := compute()
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(servers)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize servers for cache: %w", err)
		}
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			log.Printf("[VPN] failed to cache %s: %v", key, err)
		}

		return servers, nil
	})
	if err != nil {
		return nil, err
	}

	return value.([]domain.VPNServer), nil
}

// paginate slices servers for a 1-indexed page; a page beyond the available
// range of a non-empty listing fails with domain.ErrEmptyResult
func paginate(servers []domain.VPNServer, page, pageSize int) ([]domain.VPNServer, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("invalid pagination (page=%d, page_size=%d): %w", page, pageSize, domain.ErrEmptyResult)
	}

	totalPages := (len(servers) + pageSize - 1) / pageSize
	if len(servers) > 0 && page > totalPages {
		return nil, fmt.Errorf("page %d does not exist (total pages: %d): %w", page, totalPages, domain.ErrEmptyResult)
	}

	start := (page - 1) * pageSize
	if start >= len(servers) {
		return []domain.VPNServer{}, nil
	}

	end := min(start+pageSize, len(servers))
	return servers[start:end], nil
}

// sortByLatency orders measured entries ascending and keeps unmeasured ones
// after them in their pre-measurement relative order
func sortByLatency(servers []domain.VPNServer) {
	sort.SliceStable(servers, func(i, j int) bool {
		switch {
		case servers[i].Latency == nil:
			return false
		case servers[j].Latency == nil:
			return true
		default:
			return *servers[i].Latency < *servers[j].Latency
		}
	})
}

func performanceKey(s domain.VPNServer) float64 {
	if s.Latency != nil {
		return *s.Latency
	}
	if s.Load != nil {
		return 1e6 + float64(*s.Load)
	}
	return 1e9
}

func loadOrDefault(load *int) int {
	if load == nil {
		return 50
	}
	return *load
}

func roundMs(ms float64) float64 {
	return float64(int64(ms*100+0.5)) / 100
}
