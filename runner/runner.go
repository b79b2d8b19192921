package runner

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/sadewadee/wg-aggregator/tlmt"
	"github.com/sadewadee/wg-aggregator/tlmt/gonoop"
	"github.com/sadewadee/wg-aggregator/tlmt/goposthog"
)

// Cache backend selectors
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	Addr   string
	APIKey string

	CacheTTL     time.Duration
	CacheBackend string
	RedisAddr    string
	RedisPass    string
	RedisDB      int

	NordVPNURL   string
	SurfsharkURL string
	NordVPNLimit int

	DefaultPageSize int
	MaxPageSize     int

	HTTPTimeout      time.Duration
	ProbeConcurrency int
	RateLimitRPS     float64
	RateLimitBurst   int

	DisableTelemetry bool
}

func ParseConfig() *Config {
	cfg := Config{}

	flag.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key for authenticated access (empty disables auth)")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", 5*time.Minute, "server list cache TTL (e.g., '5m')")
	flag.StringVar(&cfg.CacheBackend, "cache-backend", CacheBackendMemory, "cache backend: memory, redis or none")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address (host:port)")
	flag.StringVar(&cfg.RedisPass, "redis-pass", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.StringVar(&cfg.NordVPNURL, "nordvpn-url", "", "NordVPN servers endpoint override")
	flag.StringVar(&cfg.SurfsharkURL, "surfshark-url", "", "Surfshark clusters endpoint override")
	flag.IntVar(&cfg.NordVPNLimit, "nordvpn-limit", 0, "maximum raw NordVPN records to request (0 = unlimited)")
	flag.IntVar(&cfg.DefaultPageSize, "page-size", 50, "default page size for listings")
	flag.IntVar(&cfg.MaxPageSize, "max-page-size", 500, "maximum allowed page size")
	flag.DurationVar(&cfg.HTTPTimeout, "http-timeout", 30*time.Second, "timeout for upstream provider requests")
	flag.IntVar(&cfg.ProbeConcurrency, "probe-concurrency", 50, "maximum simultaneous TCP latency probes")
	flag.Float64Var(&cfg.RateLimitRPS, "rate-limit", 10, "per-IP requests per second (0 disables)")
	flag.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", 20, "per-IP burst size")
	flag.BoolVar(&cfg.DisableTelemetry, "disable-telemetry", false, "disable anonymous usage telemetry")

	flag.Parse()

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("WG_AGGREGATOR_API_KEY")
	}

	if v := os.Getenv("WG_AGGREGATOR_ADDR"); v != "" && cfg.Addr == ":8080" {
		cfg.Addr = v
	}

	if v := os.Getenv("WG_AGGREGATOR_REDIS_ADDR"); v != "" && cfg.RedisAddr == "localhost:6379" {
		cfg.RedisAddr = v
	}

	if v := os.Getenv("WG_AGGREGATOR_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			panic("WG_AGGREGATOR_CACHE_TTL must be a duration: " + err.Error())
		}
		cfg.CacheTTL = ttl
	}

	if v := os.Getenv("WG_AGGREGATOR_NORDVPN_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			panic("WG_AGGREGATOR_NORDVPN_LIMIT must be an integer: " + err.Error())
		}
		cfg.NordVPNLimit = limit
	}

	switch cfg.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		panic("CacheBackend must be one of: memory, redis, none")
	}

	if cfg.CacheTTL <= 0 {
		panic("CacheTTL must be greater than 0")
	}

	if cfg.NordVPNLimit < 0 {
		panic("NordVPNLimit must not be negative")
	}

	if cfg.DefaultPageSize < 1 || cfg.MaxPageSize < cfg.DefaultPageSize {
		panic("page size bounds must satisfy 1 <= page-size <= max-page-size")
	}

	if cfg.HTTPTimeout <= 0 {
		panic("HTTPTimeout must be greater than 0")
	}

	if cfg.ProbeConcurrency < 1 {
		panic("ProbeConcurrency must be greater than 0")
	}

	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 1 {
		panic("rate limit must satisfy rate-limit >= 0 and rate-limit-burst >= 1")
	}

	return &cfg
}

var (
	telemetryOnce sync.Once
	telemetry     tlmt.Telemetry
)

func Telemetry() tlmt.Telemetry {
	telemetryOnce.Do(func() {
		disableTel := func() bool {
			return os.Getenv("DISABLE_TELEMETRY") == "1"
		}()

		if disableTel {
			telemetry = gonoop.New()

			return
		}

		val, err := goposthog.New("phc_CHYBGEd1eJZzDE7ZWhyiSFuXa9KMLRnaYN47aoIAY2A", "https://eu.i.posthog.com")
		if err != nil || val == nil {
			telemetry = gonoop.New()

			return
		}

		telemetry = val
	})

	return telemetry
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(0)
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		lineWidth := runewidth.StringWidth(line)
		paddingRight := contentWidth - lineWidth

		if paddingRight < 0 {
			paddingRight = 0
		}

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

func Banner() {
	message1 := "🔒 WG Aggregator - WireGuard Server API"
	message2 := "⚡ NordVPN + Surfshark, cached and latency-ranked"
	message3 := fmt.Sprintf("v%s (%s)", Version, BuildDate)

	fmt.Fprintln(os.Stderr, banner([]string{message1, message2, message3}, 0))
}
