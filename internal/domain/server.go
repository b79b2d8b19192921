package domain

import (
	"sort"
	"strings"
)

// Supported VPN providers
const (
	ProviderNordVPN   = "nordvpn"
	ProviderSurfshark = "surfshark"
)

// ValidProvider reports whether name is a supported provider identifier
func ValidProvider(name string) bool {
	switch name {
	case ProviderNordVPN, ProviderSurfshark:
		return true
	default:
		return false
	}
}

// VPNServer is the canonical server record every provider is normalized into.
// Instances are values and are never mutated after construction; annotating a
// server with a measured latency produces a copy (see WithLatency).
type VPNServer struct {
	Provider    string   `json:"provider"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Identifier  string   `json:"identifier"`
	PublicKey   string   `json:"public_key"`
	Load        *int     `json:"load,omitempty"`
	Latency     *float64 `json:"latency,omitempty"`
}

// WithLatency returns a copy of the server annotated with a measured latency
// in milliseconds
func (s VPNServer) WithLatency(ms float64) VPNServer {
	s.Latency = &ms
	return s
}

// WithoutLatency returns a copy of the server with no latency annotation
func (s VPNServer) WithoutLatency() VPNServer {
	s.Latency = nil
	return s
}

// Host extracts the probe target from the server identifier by stripping an
// optional scheme, port and path. NordVPN identifiers are plain hostnames,
// Surfshark connection names may carry extra decoration.
func (s VPNServer) Host() string {
	host := s.Identifier
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.IndexByte(host, ':'); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.IndexByte(host, '/'); idx != -1 {
		host = host[:idx]
	}
	return host
}

// CountryInfo describes a country that has at least one server available
type CountryInfo struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Display string `json:"display"`
}

// CountriesFrom derives the unique set of countries observed in servers,
// sorted by country code. The first name seen for a code wins.
func CountriesFrom(servers []VPNServer) []CountryInfo {
	names := make(map[string]string)
	for _, s := range servers {
		if _, ok := names[s.CountryCode]; !ok {
			names[s.CountryCode] = s.Country
		}
	}

	countries := make([]CountryInfo, 0, len(names))
	for code, name := range names {
		countries = append(countries, CountryInfo{
			Code:    code,
			Name:    name,
			Display: code + " - " + name,
		})
	}

	sort.Slice(countries, func(i, j int) bool {
		return countries[i].Code < countries[j].Code
	})

	return countries
}
