package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

const (
	// DefaultNordVPNURL is the NordVPN servers endpoint
	DefaultNordVPNURL = "https://api.nordvpn.com/v1/servers"

	wireguardTechnology = "wireguard_udp"
	statusOnline        = "online"
)

// NordVPN fetches server listings from the NordVPN public API
type NordVPN struct {
	client  *http.Client
	baseURL string
	limit   int
}

// NewNordVPN creates a NordVPN provider. limit bounds the number of raw
// records requested from the upstream (0 = unlimited).
func NewNordVPN(client *http.Client, baseURL string, limit int) *NordVPN {
	if baseURL == "" {
		baseURL = DefaultNordVPNURL
	}
	return &NordVPN{client: client, baseURL: baseURL, limit: limit}
}

func (p *NordVPN) Name() string {
	return domain.ProviderNordVPN
}

type nordMetadata struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type nordTechnology struct {
	Identifier string `json:"identifier"`
	Pivot      struct {
		Status string `json:"status"`
	} `json:"pivot"`
	Metadata []nordMetadata `json:"metadata"`
}

type nordLocation struct {
	Country struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"country"`
}

type nordServer struct {
	Hostname     string           `json:"hostname"`
	Status       string           `json:"status"`
	Load         *int             `json:"load"`
	Locations    []nordLocation   `json:"locations"`
	Technologies []nordTechnology `json:"technologies"`
}

// FetchAll retrieves all NordVPN servers that support WireGuard, normalized
// and sorted ascending by load (upstream order breaks ties)
func (p *NordVPN) FetchAll(ctx context.Context) ([]domain.VPNServer, error) {
	query := url.Values{}
	query.Set("filters[servers_technologies][identifier]", wireguardTechnology)
	query.Set("limit", strconv.Itoa(p.limit))

	endpoint := p.baseURL + "?" + query.Encode()
	log.Printf("[NordVPN] fetching servers from %s", endpoint)

	body, err := fetchBody(ctx, p.client, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []nordServer
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataParse, err)
	}

	servers := make([]domain.VPNServer, 0, len(raw))
	for _, rec := range raw {
		if rec.Status != statusOnline || rec.Hostname == "" {
			continue
		}

		// A record is eligible only when its WireGuard technology entry
		// is itself online; the public key lives in that entry's metadata.
		pubkey := wireguardPublicKey(rec.Technologies)
		if pubkey == "" {
			continue
		}

		country, code := nordCountry(rec.Locations)

		servers = append(servers, domain.VPNServer{
			Provider:    domain.ProviderNordVPN,
			Country:     country,
			CountryCode: code,
			Identifier:  rec.Hostname,
			PublicKey:   pubkey,
			Load:        rec.Load,
		})
	}

	sort.SliceStable(servers, func(i, j int) bool {
		return loadOrMax(servers[i].Load) < loadOrMax(servers[j].Load)
	})

	log.Printf("[NordVPN] %d of %d servers eligible", len(servers), len(raw))

	return servers, nil
}

// FetchByCountry retrieves NordVPN servers for a single country
func (p *NordVPN) FetchByCountry(ctx context.Context, countryCode string) ([]domain.VPNServer, error) {
	servers, err := p.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByCountry(servers, countryCode), nil
}

// wireguardPublicKey returns the public key of the online WireGuard
// technology entry, or "" when the record carries none
func wireguardPublicKey(technologies []nordTechnology) string {
	for _, tech := range technologies {
		if tech.Identifier != wireguardTechnology {
			continue
		}
		if tech.Pivot.Status != statusOnline {
			return ""
		}
		for _, meta := range tech.Metadata {
			if meta.Name == "public_key" {
				return meta.Value
			}
		}
		return ""
	}
	return ""
}

func nordCountry(locations []nordLocation) (name, code string) {
	name, code = "Unknown", "XX"
	if len(locations) == 0 {
		return name, code
	}
	if locations[0].Country.Name != "" {
		name = locations[0].Country.Name
	}
	if locations[0].Country.Code != "" {
		code = strings.ToUpper(locations[0].Country.Code)
	}
	return name, code
}

func loadOrMax(load *int) int {
	if load == nil {
		return int(^uint(0) >> 1)
	}
	return *load
}
