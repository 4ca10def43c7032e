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
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Oracle    OracleConfig
	Gate      GateConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	CORS      CORSConfig
	Auth      AuthConfig
	Log       LogConfig
	Webhook   WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"

	// EnableHTTPS serves TLS with CertPath/KeyPath. Falls back to plain
	// HTTP when the key pair cannot be loaded.
	EnableHTTPS bool
	CertPath    string // default: "./certs/cert.pem"
	KeyPath     string // default: "./certs/key.pem"
}

// BrowserConfig controls the Rod browser instance and per-page emulation.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the upstream proxy for all page traffic. Only applied when
	// USE_PROXY is true.
	Proxy string

	// Width and Height are the emulated viewport dimensions.
	Width  int // default: 1280
	Height int // default: 800

	// JavaScript toggles script execution on scanned pages.
	JavaScript bool // default: true

	// Stealth injects go-rod/stealth before navigation.
	Stealth bool // default: true

	// UserAgent is the desktop browser identification sent to targets.
	UserAgent string
}

// ScraperConfig controls content extraction.
type ScraperConfig struct {
	// NavigationTimeout bounds page.Navigate plus the DOMContentLoaded wait.
	NavigationTimeout time.Duration // default: 30s

	// SettleDelay gives client-side rendering time after navigation.
	SettleDelay time.Duration // default: 1s

	// ScreenshotQuality is the JPEG quality (1-100).
	ScreenshotQuality int // default: 80

	// FullPageScreenshot captures the whole document instead of the viewport.
	FullPageScreenshot bool // default: false

	// BlockedResourceTypes lists resource types to block.
	// default: ["Media", "Font"]
	BlockedResourceTypes []string

	// ProbeEnabled runs a plain HTTPS reachability probe before the browser.
	ProbeEnabled bool // default: true

	// ProbeTimeout bounds the reachability probe.
	ProbeTimeout time.Duration // default: 5s
}

// OracleConfig controls the OpenAI-compatible risk oracle.
type OracleConfig struct {
	APIKey      string
	Model       string        // default: "gpt-4-turbo"
	BaseURL     string        // default: "https://api.openai.com/v1"
	Timeout     time.Duration // default: 60s
	MaxTokens   int           // default: 800
	Temperature float64       // default: 0.7

	// RequestsPerSecond and Burst pace outbound oracle calls.
	RequestsPerSecond float64 // default: 2
	Burst             int     // default: 4
}

// GateConfig controls scan admission.
type GateConfig struct {
	// MaxConcurrent is the number of scans allowed in flight at once.
	MaxConcurrent int // default: 5
}

// RateLimitConfig controls the per-client fixed-window scan limit.
type RateLimitConfig struct {
	// MaxScans is the number of scans allowed per client per window.
	MaxScans int // default: 100

	// Window is the fixed window length.
	Window time.Duration // default: 24h
}

// CacheConfig controls the scan result cache.
type CacheConfig struct {
	Enabled       bool          // default: false
	TTL           time.Duration // default: 1h
	MaxItems      int           // default: 1000
	SweepInterval time.Duration // default: 60s
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string // default: ["http://localhost:3000"]
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig controls high-risk scan notifications.
type WebhookConfig struct {
	URL    string
	Secret string

	// MinScore is the lowest risk score that triggers a notification.
	MinScore float64 // default: 80
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	proxy := ""
	if envBoolOr("USE_PROXY", false) {
		proxy = os.Getenv("PROXY_SERVER")
	}

	return &Config{
		Server: ServerConfig{
			Host:        envOr("SERVER_HOST", "0.0.0.0"),
			Port:        envIntOr("SERVER_PORT", 3000),
			Mode:        envOr("GIN_MODE", "release"),
			EnableHTTPS: envBoolOr("ENABLE_HTTPS", false),
			CertPath:    envOr("SSL_CERT_PATH", "./certs/cert.pem"),
			KeyPath:     envOr("SSL_KEY_PATH", "./certs/key.pem"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("BROWSER_HEADLESS", true),
			NoSandbox:  envBoolOr("BROWSER_NO_SANDBOX", true),
			BrowserBin: envOr("BROWSER_BIN", os.Getenv("PUPPETEER_EXECUTABLE_PATH")),
			Proxy:      proxy,
			Width:      envIntOr("BROWSER_WIDTH", 1280),
			Height:     envIntOr("BROWSER_HEIGHT", 800),
			JavaScript: envBoolOr("ENABLE_JAVASCRIPT", true),
			Stealth:    envBoolOr("BROWSER_STEALTH", true),
			UserAgent:  envOr("BROWSER_USER_AGENT", DefaultUserAgent),
		},
		Scraper: ScraperConfig{
			NavigationTimeout:    envMillisOr("PAGE_LOAD_TIMEOUT", 30*time.Second),
			SettleDelay:          envDurationOr("PAGE_SETTLE_DELAY", time.Second),
			ScreenshotQuality:    envIntOr("SCREENSHOT_QUALITY", 80),
			FullPageScreenshot:   envBoolOr("SCREENSHOT_FULL_PAGE", false),
			BlockedResourceTypes: envSliceOr("BLOCKED_RESOURCES", []string{"Media", "Font"}),
			ProbeEnabled:         envBoolOr("PROBE_ENABLED", true),
			ProbeTimeout:         envDurationOr("PROBE_TIMEOUT", 5*time.Second),
		},
		Oracle: OracleConfig{
			APIKey:            os.Getenv("OPENAI_API_KEY"),
			Model:             envOr("OPENAI_MODEL", "gpt-4-turbo"),
			BaseURL:           envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:           envMillisOr("API_TIMEOUT", 60*time.Second),
			MaxTokens:         envIntOr("ORACLE_MAX_TOKENS", 800),
			Temperature:       envFloatOr("ORACLE_TEMPERATURE", 0.7),
			RequestsPerSecond: envFloatOr("ORACLE_RPS", 2),
			Burst:             envIntOr("ORACLE_BURST", 4),
		},
		Gate: GateConfig{
			MaxConcurrent: envIntOr("MAX_CONCURRENT_REQUESTS", 5),
		},
		RateLimit: RateLimitConfig{
			MaxScans: envIntOr("MAX_URLS_PER_DAY", 100),
			Window:   envMillisOr("RATE_LIMIT_WINDOW_MS", 24*time.Hour),
		},
		Cache: CacheConfig{
			Enabled:       envBoolOr("ENABLE_CACHE", false),
			TTL:           envSecondsOr("CACHE_TTL", time.Hour),
			MaxItems:      envIntOr("MAX_CACHE_ITEMS", 1000),
			SweepInterval: envDurationOr("CACHE_SWEEP_INTERVAL", time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: envSliceOr("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("AUTH_ENABLED", false),
			APIKeys: envSliceOr("API_KEYS", nil),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			URL:      os.Getenv("WEBHOOK_URL"),
			Secret:   os.Getenv("WEBHOOK_SECRET"),
			MinScore: envFloatOr("WEBHOOK_MIN_SCORE", 80),
		},
	}
}

// DefaultUserAgent is a current desktop Chrome identification string.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

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

// envMillisOr reads an integer millisecond count. Go duration strings
// ("45s") are accepted too.
func envMillisOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

// envSecondsOr reads an integer second count. Go duration strings are
// accepted too.
func envSecondsOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if s, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(s) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
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
