package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/wg-aggregator/internal/domain"
)

type stubVPNService struct {
	servers      []domain.VPNServer
	countries    []domain.CountryInfo
	report       *domain.LatencyReport
	err          error
	lastCountry  string
	lastLimit    int
	lastMeasure  int
	lastMethod   string
	lastExcluded []string
	lastPage     int
	lastPageSize int
}

func (s *stubVPNService) List(_ context.Context, _ string, page, pageSize int) ([]domain.VPNServer, int, error) {
	s.lastPage, s.lastPageSize = page, pageSize
	return s.servers, len(s.servers), s.err
}

func (s *stubVPNService) ListByCountry(_ context.Context, _, countryCode string, page, pageSize int) ([]domain.VPNServer, int, error) {
	s.lastCountry = countryCode
	s.lastPage, s.lastPageSize = page, pageSize
	return s.servers, len(s.servers), s.err
}

func (s *stubVPNService) ListCountries(_ context.Context, _ string) ([]domain.CountryInfo, error) {
	return s.countries, s.err
}

func (s *stubVPNService) Top(_ context.Context, _ string, limit int, countryCode string) ([]domain.VPNServer, error) {
	s.lastLimit, s.lastCountry = limit, countryCode
	return s.servers, s.err
}

func (s *stubVPNService) MeasureLatency(_ context.Context, _, countryCode string, limit int, method string) (*domain.LatencyReport, error) {
	s.lastCountry, s.lastLimit, s.lastMethod = countryCode, limit, method
	return s.report, s.err
}

func (s *stubVPNService) FindFastest(_ context.Context, _ string, limit int, countryCode string, measureCount int, excludeCountries []string) ([]domain.VPNServer, error) {
	s.lastLimit, s.lastCountry, s.lastMeasure, s.lastExcluded = limit, countryCode, measureCount, excludeCountries
	return s.servers, s.err
}

func newTestRequest(t *testing.T, target string, pathValues map[string]string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for key, value := range pathValues {
		req.SetPathValue(key, value)
	}
	return req
}

func TestListValidation(t *testing.T) {
	stub := &stubVPNService{}
	h := NewServerHandler(stub, 50, 500)

	tests := []struct {
		name           string
		provider       string
		target         string
		expectedStatus int
	}{
		{
			name:           "valid provider",
			provider:       "nordvpn",
			target:         "/api/nordvpn/servers",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown provider",
			provider:       "expressvpn",
			target:         "/api/expressvpn/servers",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "page below one",
			provider:       "nordvpn",
			target:         "/api/nordvpn/servers?page=0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "page not a number",
			provider:       "nordvpn",
			target:         "/api/nordvpn/servers?page=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "page size above maximum",
			provider:       "nordvpn",
			target:         "/api/nordvpn/servers?page_size=501",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t, tt.target, map[string]string{"provider": tt.provider})

			rec := httptest.NewRecorder()
			h.List(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestListDefaults(t *testing.T) {
	stub := &stubVPNService{servers: []domain.VPNServer{{Identifier: "de1"}}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers", map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.lastPage)
	assert.Equal(t, 50, stub.lastPageSize)

	var resp ServerListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "nordvpn", resp.Provider)
	assert.Equal(t, 1, resp.Total)
}

func TestListPaginatedEnvelope(t *testing.T) {
	stub := &stubVPNService{servers: []domain.VPNServer{{Identifier: "de1"}, {Identifier: "de2"}}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers/paginated?page=1&page_size=2",
		map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.ListPaginated(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PerPage)
	assert.Equal(t, 1, resp.TotalPages)
}

func TestListByCountryValidation(t *testing.T) {
	stub := &stubVPNService{servers: []domain.VPNServer{{Identifier: "de1"}}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers/de",
		map[string]string{"provider": "nordvpn", "country_code": "de"})

	rec := httptest.NewRecorder()
	h.ListByCountry(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DE", stub.lastCountry)

	req = newTestRequest(t, "/api/nordvpn/servers/deu",
		map[string]string{"provider": "nordvpn", "country_code": "deu"})

	rec = httptest.NewRecorder()
	h.ListByCountry(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatencyMethodValidation(t *testing.T) {
	stub := &stubVPNService{report: &domain.LatencyReport{Method: "tcp"}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers/latency?method=icmp",
		map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.Latency(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = newTestRequest(t, "/api/nordvpn/servers/latency?method=tcp&limit=5",
		map[string]string{"provider": "nordvpn"})

	rec = httptest.NewRecorder()
	h.Latency(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tcp", stub.lastMethod)
	assert.Equal(t, 5, stub.lastLimit)
}

func TestLatencyDefaultsToAuto(t *testing.T) {
	stub := &stubVPNService{report: &domain.LatencyReport{}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers/latency",
		map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.Latency(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auto", stub.lastMethod)
	assert.Equal(t, 0, stub.lastLimit)
}

func TestFastestExcludeParsing(t *testing.T) {
	stub := &stubVPNService{servers: []domain.VPNServer{{Identifier: "de1"}}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/servers/fastest?exclude=br-us&measure_count=20",
		map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.Fastest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"BR", "US"}, stub.lastExcluded)
	assert.Equal(t, 20, stub.lastMeasure)
	assert.Equal(t, 5, stub.lastLimit)

	req = newTestRequest(t, "/api/nordvpn/servers/fastest?exclude=brazil",
		map[string]string{"provider": "nordvpn"})

	rec = httptest.NewRecorder()
	h.Fastest(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "empty result",
			err:            domain.ErrEmptyResult,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "upstream unavailable",
			err:            domain.ErrUpstreamUnavailable,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "data parse",
			err:            domain.ErrDataParse,
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "upstream unreachable",
			err:            domain.ErrUpstreamUnreachable,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubVPNService{err: tt.err}
			h := NewServerHandler(stub, 50, 500)

			req := newTestRequest(t, "/api/nordvpn/servers", map[string]string{"provider": "nordvpn"})

			rec := httptest.NewRecorder()
			h.List(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var apiErr APIError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.expectedStatus, apiErr.Code)
		})
	}
}

func TestListCountriesPayload(t *testing.T) {
	stub := &stubVPNService{countries: []domain.CountryInfo{
		{Code: "DE", Name: "Germany", Display: "DE - Germany"},
	}}
	h := NewServerHandler(stub, 50, 500)

	req := newTestRequest(t, "/api/nordvpn/countries", map[string]string{"provider": "nordvpn"})

	rec := httptest.NewRecorder()
	h.ListCountries(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Provider  string               `json:"provider"`
		Total     int                  `json:"total"`
		Countries []domain.CountryInfo `json:"countries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "nordvpn", resp.Provider)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Countries, 1)
	assert.Equal(t, "DE - Germany", resp.Countries[0].Display)
}
