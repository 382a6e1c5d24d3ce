package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Popup     PopupConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	LLM       LLMConfig
	Search    SearchConfig
	Verify    VerifyConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the classification HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 5000
	Mode string // "debug", "release", "test"; default: "release"
}

// PopupConfig controls the analysis client.
type PopupConfig struct {
	// Endpoint is the classification URL the client POSTs to.
	Endpoint string // default: "http://localhost:5000/predict"

	// RequestTimeout bounds one whole run (extraction + classification).
	RequestTimeout time.Duration // default: 90s

	// TickInterval is the period of the cosmetic progress ticker.
	TickInterval time.Duration // default: 1s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 2

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls page fetching.
type ScraperConfig struct {
	// MaxTimeout caps the per-page fetch deadline.
	MaxTimeout time.Duration // default: 60s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// AcceptLanguage is sent with every page fetch.
	AcceptLanguage string // default: "en-US,en;q=0.9"
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout is the deadline for the pure HTTP engine.
	HTTPTimeout time.Duration // default: 10s

	// MemoryTTL is how long a domain remembers its winning engine.
	MemoryTTL time.Duration // default: 24h
}

// LLMConfig points at an OpenAI-compatible chat completion API.
type LLMConfig struct {
	BaseURL     string        // default: "http://localhost:11434/v1"
	APIKey      string        // default: "ollama"
	Model       string        // default: "llama3.1:8b"
	Temperature float64       // default: 0
	Timeout     time.Duration // default: 120s
}

// SearchConfig selects the web search backend used as claim evidence.
type SearchConfig struct {
	// Provider is "duckduckgo" or "searxng"; default: "duckduckgo".
	Provider string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// MaxResults limits the evidence snippets per claim.
	MaxResults int // default: 5

	Timeout time.Duration // default: 15s
}

// VerifyConfig tunes the claim-verification pipeline.
type VerifyConfig struct {
	// PassThreshold is the legitimacy percentage at or above which an
	// article is labelled Verified.
	PassThreshold float64 // default: 60

	// DuplicateDistance, when positive, enables SimHash near-repeat
	// detection between extracted claims. 0 matches identical words only.
	DuplicateDistance int // default: 0
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 5
}

// CacheConfig controls the verdict cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached verdicts.
	MaxEntries int // default: 500

	// MaxAge is how long a cached verdict is served; 0 disables caching.
	MaxAge time.Duration // default: 1h
}

// WebhookConfig controls verdict notifications.
type WebhookConfig struct {
	// URL receives verdict.completed events; empty disables webhooks.
	URL string

	// Secret signs the payload with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TRUTHLENS_HOST", "127.0.0.1"),
			Port: envIntOr("TRUTHLENS_PORT", 5000),
			Mode: envOr("TRUTHLENS_MODE", "release"),
		},
		Popup: PopupConfig{
			Endpoint:       envOr("TRUTHLENS_ENDPOINT", "http://localhost:5000/predict"),
			RequestTimeout: envDurationOr("TRUTHLENS_REQUEST_TIMEOUT", 90*time.Second),
			TickInterval:   envDurationOr("TRUTHLENS_TICK_INTERVAL", time.Second),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("TRUTHLENS_HEADLESS", true),
			MaxPages:     envIntOr("TRUTHLENS_MAX_PAGES", 2),
			DefaultProxy: os.Getenv("TRUTHLENS_PROXY"),
			NoSandbox:    envBoolOr("TRUTHLENS_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("TRUTHLENS_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			MaxTimeout: envDurationOr("TRUTHLENS_MAX_TIMEOUT", 60*time.Second),
			BlockedResourceTypes: envSliceOr("TRUTHLENS_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			AcceptLanguage: envOr("TRUTHLENS_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		},
		Engine: EngineConfig{
			EscalationDelays: envDurationSliceOr("TRUTHLENS_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:      envDurationOr("TRUTHLENS_HTTP_TIMEOUT", 10*time.Second),
			MemoryTTL:        envDurationOr("TRUTHLENS_ENGINE_MEMORY_TTL", 24*time.Hour),
		},
		LLM: LLMConfig{
			BaseURL:     envOr("TRUTHLENS_LLM_BASE_URL", "http://localhost:11434/v1"),
			APIKey:      envOr("TRUTHLENS_LLM_API_KEY", "ollama"),
			Model:       envOr("TRUTHLENS_LLM_MODEL", "llama3.1:8b"),
			Temperature: envFloatOr("TRUTHLENS_LLM_TEMPERATURE", 0),
			Timeout:     envDurationOr("TRUTHLENS_LLM_TIMEOUT", 120*time.Second),
		},
		Search: SearchConfig{
			Provider:   envOr("TRUTHLENS_SEARCH_PROVIDER", "duckduckgo"),
			BaseURL:    os.Getenv("TRUTHLENS_SEARCH_URL"),
			MaxResults: envIntOr("TRUTHLENS_SEARCH_MAX_RESULTS", 5),
			Timeout:    envDurationOr("TRUTHLENS_SEARCH_TIMEOUT", 15*time.Second),
		},
		Verify: VerifyConfig{
			PassThreshold:     envFloatOr("TRUTHLENS_PASS_THRESHOLD", 60),
			DuplicateDistance: envIntOr("TRUTHLENS_DUPLICATE_DISTANCE", 0),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("TRUTHLENS_AUTH_ENABLED", false),
			APIKeys: envSliceOr("TRUTHLENS_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TRUTHLENS_RATE_RPS", 1.0),
			Burst:             envIntOr("TRUTHLENS_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TRUTHLENS_CACHE_MAX_ENTRIES", 500),
			MaxAge:     envDurationOr("TRUTHLENS_CACHE_MAX_AGE", time.Hour),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("TRUTHLENS_WEBHOOK_URL"),
			Secret: os.Getenv("TRUTHLENS_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("TRUTHLENS_LOG_LEVEL", "info"),
			Format: envOr("TRUTHLENS_LOG_FORMAT", "json"),
		},
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
