package api

import (
	"net/http"

	"github.com/sadewadee/wg-aggregator/internal/api/handlers"
)

// Router sets up all API routes
type Router struct {
	mux     *http.ServeMux
	servers *handlers.ServerHandler
	system  *handlers.SystemHandler
}

// NewRouter creates a new Router
func NewRouter(
	servers *handlers.ServerHandler,
	system *handlers.SystemHandler,
) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		servers: servers,
		system:  system,
	}
}

// Setup configures all routes
func (r *Router) Setup(token string, rateLimitRPS float64, rateLimitBurst int) http.Handler {
	// System endpoints
	r.mux.HandleFunc("GET /health", r.system.Health)
	r.mux.HandleFunc("GET /api/stats", r.system.Stats)

	// Server listing endpoints
	r.mux.HandleFunc("GET /api/{provider}/servers", r.servers.List)
	r.mux.HandleFunc("GET /api/{provider}/servers/paginated", r.servers.ListPaginated)
	r.mux.HandleFunc("GET /api/{provider}/servers/top", r.servers.Top)
	r.mux.HandleFunc("GET /api/{provider}/servers/latency", r.servers.Latency)
	r.mux.HandleFunc("GET /api/{provider}/servers/fastest", r.servers.Fastest)
	r.mux.HandleFunc("GET /api/{provider}/servers/{country_code}", r.servers.ListByCountry)
	r.mux.HandleFunc("GET /api/{provider}/countries", r.servers.ListCountries)

	// Apply middleware
	return Chain(r.mux,
		Recovery,
		RequestID,
		Logger,
		CORS,
		SecurityHeaders,
		RateLimit(rateLimitRPS, rateLimitBurst),
		Auth(token),
	)
}
