package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/sadewadee/wg-aggregator/internal/domain"
	"github.com/sadewadee/wg-aggregator/internal/latency"
)

// VPNServiceInterface defines the VPN service methods
type VPNServiceInterface interface {
	List(ctx context.Context, provider string, page, pageSize int) ([]domain.VPNServer, int, error)
	ListByCountry(ctx context.Context, provider, countryCode string, page, pageSize int) ([]domain.VPNServer, int, error)
	ListCountries(ctx context.Context, provider string) ([]domain.CountryInfo, error)
	Top(ctx context.Context, provider string, limit int, countryCode string) ([]domain.VPNServer, error)
	MeasureLatency(ctx context.Context, provider, countryCode string, limit int, method string) (*domain.LatencyReport, error)
	FindFastest(ctx context.Context, provider string, limit int, countryCode string, measureCount int, excludeCountries []string) ([]domain.VPNServer, error)
}

// ServerHandler handles VPN server listing HTTP requests
type ServerHandler struct {
	vpn             VPNServiceInterface
	defaultPageSize int
	maxPageSize     int
}

// NewServerHandler creates a new ServerHandler
func NewServerHandler(vpn VPNServiceInterface, defaultPageSize, maxPageSize int) *ServerHandler {
	return &ServerHandler{
		vpn:             vpn,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

var countryCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// ServerListResponse is the plain (non-enveloped) listing shape
type ServerListResponse struct {
	Provider string             `json:"provider"`
	Total    int                `json:"total"`
	Servers  []domain.VPNServer `json:"servers"`
}

// List handles GET /api/{provider}/servers
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	page, pageSize, ok := h.parsePagination(w, r)
	if !ok {
		return
	}

	servers, total, err := h.vpn.List(r.Context(), provider, page, pageSize)
	if err != nil {
		log.Printf("[ServerHandler] list failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, ServerListResponse{
		Provider: provider,
		Total:    total,
		Servers:  servers,
	})
}

// ListPaginated handles GET /api/{provider}/servers/paginated
func (h *ServerHandler) ListPaginated(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	page, pageSize, ok := h.parsePagination(w, r)
	if !ok {
		return
	}

	servers, total, err := h.vpn.List(r.Context(), provider, page, pageSize)
	if err != nil {
		log.Printf("[ServerHandler] paginated list failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, NewPaginatedResponse(servers, total, page, pageSize))
}

// ListByCountry handles GET /api/{provider}/servers/{country_code}
func (h *ServerHandler) ListByCountry(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	countryCode := strings.ToUpper(r.PathValue("country_code"))
	if !countryCodeRe.MatchString(countryCode) {
		RenderError(w, http.StatusBadRequest, "Invalid country code: expected two letters")
		return
	}

	page, pageSize, ok := h.parsePagination(w, r)
	if !ok {
		return
	}

	servers, total, err := h.vpn.ListByCountry(r.Context(), provider, countryCode, page, pageSize)
	if err != nil {
		log.Printf("[ServerHandler] country list failed for %s/%s: %v", provider, countryCode, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, NewPaginatedResponse(servers, total, page, pageSize))
}

// ListCountries handles GET /api/{provider}/countries
func (h *ServerHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	countries, err := h.vpn.ListCountries(r.Context(), provider)
	if err != nil {
		log.Printf("[ServerHandler] countries failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, map[string]interface{}{
		"provider":  provider,
		"total":     len(countries),
		"countries": countries,
	})
}

// Top handles GET /api/{provider}/servers/top
func (h *ServerHandler) Top(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	limit, ok := parseIntParam(w, r, "limit", 10, 1, 100)
	if !ok {
		return
	}

	countryCode, ok := parseOptionalCountry(w, r)
	if !ok {
		return
	}

	servers, err := h.vpn.Top(r.Context(), provider, limit, countryCode)
	if err != nil {
		log.Printf("[ServerHandler] top failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, ServerListResponse{
		Provider: provider,
		Total:    len(servers),
		Servers:  servers,
	})
}

// Latency handles GET /api/{provider}/servers/latency
func (h *ServerHandler) Latency(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	limit, ok := parseIntParam(w, r, "limit", 0, 0, 0)
	if !ok {
		return
	}

	method := r.URL.Query().Get("method")
	if method == "" {
		method = latency.MethodAuto
	}
	switch method {
	case latency.MethodAuto, latency.MethodFping, latency.MethodTCP:
	default:
		RenderError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid method %q: expected auto, fping or tcp", method))
		return
	}

	countryCode, ok := parseOptionalCountry(w, r)
	if !ok {
		return
	}

	report, err := h.vpn.MeasureLatency(r.Context(), provider, countryCode, limit, method)
	if err != nil {
		log.Printf("[ServerHandler] latency failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, report)
}

// Fastest handles GET /api/{provider}/servers/fastest
func (h *ServerHandler) Fastest(w http.ResponseWriter, r *http.Request) {
	provider, ok := parseProvider(w, r)
	if !ok {
		return
	}

	limit, ok := parseIntParam(w, r, "limit", 5, 1, 100)
	if !ok {
		return
	}

	measureCount, ok := parseIntParam(w, r, "measure_count", 0, 0, 0)
	if !ok {
		return
	}

	countryCode, ok := parseOptionalCountry(w, r)
	if !ok {
		return
	}

	var exclude []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		for _, code := range strings.Split(raw, "-") {
			code = strings.ToUpper(strings.TrimSpace(code))
			if !countryCodeRe.MatchString(code) {
				RenderError(w, http.StatusBadRequest,
					fmt.Sprintf("Invalid exclude list: %q is not a country code", code))
				return
			}
			exclude = append(exclude, code)
		}
	}

	servers, err := h.vpn.FindFastest(r.Context(), provider, limit, countryCode, measureCount, exclude)
	if err != nil {
		log.Printf("[ServerHandler] fastest failed for %s: %v", provider, err)
		RenderDomainError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, ServerListResponse{
		Provider: provider,
		Total:    len(servers),
		Servers:  servers,
	})
}

// parseProvider validates the {provider} path segment
func parseProvider(w http.ResponseWriter, r *http.Request) (string, bool) {
	provider := strings.ToLower(r.PathValue("provider"))
	if !domain.ValidProvider(provider) {
		RenderError(w, http.StatusNotFound,
			fmt.Sprintf("Unknown provider %q: expected nordvpn or surfshark", provider))
		return "", false
	}
	return provider, true
}

// parsePagination reads page and page_size with handler defaults
func (h *ServerHandler) parsePagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	page, ok := parseIntParam(w, r, "page", 1, 1, 0)
	if !ok {
		return 0, 0, false
	}

	pageSize, ok := parseIntParam(w, r, "page_size", h.defaultPageSize, 1, h.maxPageSize)
	if !ok {
		return 0, 0, false
	}

	return page, pageSize, true
}

// parseOptionalCountry reads and validates the country_code query parameter
func parseOptionalCountry(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("country_code")
	if raw == "" {
		return "", true
	}

	code := strings.ToUpper(raw)
	if !countryCodeRe.MatchString(code) {
		RenderError(w, http.StatusBadRequest, "Invalid country code: expected two letters")
		return "", false
	}

	return code, true
}

// parseIntParam reads an integer query parameter with bounds; max 0 means
// unbounded above
func parseIntParam(w http.ResponseWriter, r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < min || (max > 0 && value > max) {
		if max > 0 {
			RenderError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid %s %q: expected an integer between %d and %d", name, raw, min, max))
		} else {
			RenderError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid %s %q: expected an integer >= %d", name, raw, min))
		}
		return 0, false
	}

	return value, true
}
