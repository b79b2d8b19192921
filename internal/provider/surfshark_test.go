package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

const surfsharkFixture = `[
	{
		"connectionName": "de-fra.prod.surfshark.com",
		"country": "Germany",
		"countryCode": "de",
		"type": "generic",
		"pubKey": "key-fra"
	},
	{
		"connectionName": "de-ber.prod.surfshark.com",
		"country": "Germany",
		"countryCode": "de",
		"type": "wireguard",
		"pubKey": "key-ber"
	},
	{
		"connectionName": "us-nyc.prod.surfshark.com",
		"country": "United States",
		"countryCode": "us",
		"type": "obfuscated",
		"pubKey": "key-nyc"
	},
	{
		"connectionName": "nl-ams.prod.surfshark.com",
		"country": "Netherlands",
		"countryCode": "nl",
		"type": "generic",
		"pubKey": ""
	},
	{
		"connectionName": "",
		"country": "France",
		"countryCode": "fr",
		"type": "generic",
		"pubKey": "key-anon"
	}
]`

func TestSurfsharkFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(surfsharkFixture))
	}))
	defer srv.Close()

	p := NewSurfshark(srv.Client(), srv.URL)

	servers, err := p.FetchAll(context.Background())
	require.NoError(t, err)

	// Only wireguard/generic entries with a public key and connection name
	// survive, in upstream order.
	require.Len(t, servers, 2)
	assert.Equal(t, "de-fra.prod.surfshark.com", servers[0].Identifier)
	assert.Equal(t, "de-ber.prod.surfshark.com", servers[1].Identifier)

	assert.Equal(t, domain.ProviderSurfshark, servers[0].Provider)
	assert.Equal(t, "Germany", servers[0].Country)
	assert.Equal(t, "DE", servers[0].CountryCode)
	assert.Equal(t, "key-fra", servers[0].PublicKey)

	// Surfshark reports no load figure.
	assert.Nil(t, servers[0].Load)
	assert.Nil(t, servers[1].Load)
}

func TestSurfsharkFetchByCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(surfsharkFixture))
	}))
	defer srv.Close()

	p := NewSurfshark(srv.Client(), srv.URL)

	servers, err := p.FetchByCountry(context.Background(), "de")
	require.NoError(t, err)
	assert.Len(t, servers, 2)

	servers, err = p.FetchByCountry(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestSurfsharkUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewSurfshark(srv.Client(), srv.URL)

	_, err := p.FetchAll(context.Background())
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable), "got %v", err)
}

func TestRegistry(t *testing.T) {
	nord := NewNordVPN(http.DefaultClient, "", 0)
	surf := NewSurfshark(http.DefaultClient, "")

	registry := NewRegistry(nord, surf)

	p, ok := registry.Get("NordVPN")
	require.True(t, ok)
	assert.Equal(t, domain.ProviderNordVPN, p.Name())

	_, ok = registry.Get("expressvpn")
	assert.False(t, ok)

	assert.Equal(t, []string{"nordvpn", "surfshark"}, registry.Names())
}
