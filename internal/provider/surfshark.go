package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

// DefaultSurfsharkURL is the Surfshark server clusters endpoint
const DefaultSurfsharkURL = "https://api.surfshark.com/v3/server/clusters"

// Surfshark fetches server listings from the Surfshark public API. The
// upstream returns only servers it considers available, so there is no
// status filter here, and it reports no load figure.
type Surfshark struct {
	client  *http.Client
	baseURL string
}

// NewSurfshark creates a Surfshark provider
func NewSurfshark(client *http.Client, baseURL string) *Surfshark {
	if baseURL == "" {
		baseURL = DefaultSurfsharkURL
	}
	return &Surfshark{client: client, baseURL: baseURL}
}

func (p *Surfshark) Name() string {
	return domain.ProviderSurfshark
}

type surfsharkServer struct {
	ConnectionName string `json:"connectionName"`
	Country        string `json:"country"`
	CountryCode    string `json:"countryCode"`
	Type           string `json:"type"`
	PubKey         string `json:"pubKey"`
}

// FetchAll retrieves all Surfshark servers with a WireGuard public key,
// in upstream order
func (p *Surfshark) FetchAll(ctx context.Context) ([]domain.VPNServer, error) {
	log.Printf("[Surfshark] fetching servers from %s", p.baseURL)

	body, err := fetchBody(ctx, p.client, p.baseURL)
	if err != nil {
		return nil, err
	}

	var raw []surfsharkServer
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataParse, err)
	}

	servers := make([]domain.VPNServer, 0, len(raw))
	for _, rec := range raw {
		if rec.ConnectionName == "" {
			continue
		}
		if rec.Type != "wireguard" && rec.Type != "generic" {
			continue
		}
		if rec.PubKey == "" {
			continue
		}

		country, code := rec.Country, strings.ToUpper(rec.CountryCode)
		if country == "" {
			country = "Unknown"
		}
		if code == "" {
			code = "XX"
		}

		servers = append(servers, domain.VPNServer{
			Provider:    domain.ProviderSurfshark,
			Country:     country,
			CountryCode: code,
			Identifier:  rec.ConnectionName,
			PublicKey:   rec.PubKey,
		})
	}

	log.Printf("[Surfshark] %d of %d servers eligible", len(servers), len(raw))

	return servers, nil
}

// FetchByCountry retrieves Surfshark servers for a single country
func (p *Surfshark) FetchByCountry(ctx context.Context, countryCode string) ([]domain.VPNServer, error) {
	servers, err := p.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByCountry(servers, countryCode), nil
}
