package apirunner

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/wg-aggregator/internal/api"
	"github.com/sadewadee/wg-aggregator/internal/api/handlers"
	"github.com/sadewadee/wg-aggregator/internal/cache"
	"github.com/sadewadee/wg-aggregator/internal/latency"
	"github.com/sadewadee/wg-aggregator/internal/provider"
	"github.com/sadewadee/wg-aggregator/internal/service"
	"github.com/sadewadee/wg-aggregator/runner"
	"github.com/sadewadee/wg-aggregator/tlmt"
)

// APIRunner runs the aggregation API server
type APIRunner struct {
	cfg   *runner.Config
	srv   *http.Server
	cache cache.Cache
	vpn   *service.VPNService
}

// New creates a new APIRunner
func New(cfg *runner.Config) (runner.Runner, error) {
	client := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	nordURL := cfg.NordVPNURL
	if nordURL == "" {
		nordURL = provider.DefaultNordVPNURL
	}

	surfsharkURL := cfg.SurfsharkURL
	if surfsharkURL == "" {
		surfsharkURL = provider.DefaultSurfsharkURL
	}

	registry := provider.NewRegistry(
		provider.NewNordVPN(client, nordURL, cfg.NordVPNLimit),
		provider.NewSurfshark(client, surfsharkURL),
	)

	var (
		c   cache.Cache
		err error
	)

	switch cfg.CacheBackend {
	case runner.CacheBackendRedis:
		c, err = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	case runner.CacheBackendNone:
		c = cache.NewNoOpCache()
	default:
		c = cache.NewMemoryCache()
	}

	measurer := latency.NewWithMaxInFlight(int64(cfg.ProbeConcurrency))
	vpn := service.NewVPNService(registry, c, measurer, cfg.CacheTTL)

	serverHandler := handlers.NewServerHandler(vpn, cfg.DefaultPageSize, cfg.MaxPageSize)
	systemHandler := handlers.NewSystemHandler(runner.Version, vpn.Providers())

	router := api.NewRouter(serverHandler, systemHandler)
	handler := router.Setup(cfg.APIKey, cfg.RateLimitRPS, cfg.RateLimitBurst)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &APIRunner{
		cfg:   cfg,
		srv:   srv,
		cache: c,
		vpn:   vpn,
	}, nil
}

// Run starts the API server
func (a *APIRunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return a.startServer(ctx)
	})

	_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("server_start", map[string]any{
		"cache_backend": a.cfg.CacheBackend,
		"cache_ttl":     a.cfg.CacheTTL.String(),
	}))

	return egroup.Wait()
}

// Close cleans up resources
func (a *APIRunner) Close(_ context.Context) error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

func (a *APIRunner) startServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down server: %v", err)
		}
	}()

	log.Printf("aggregation API server starting on http://localhost%s", a.cfg.Addr)
	log.Printf("cache backend: %s (ttl %s)", a.cfg.CacheBackend, a.cfg.CacheTTL)
	log.Printf("API endpoints available at /api/{provider}/")

	err := a.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
