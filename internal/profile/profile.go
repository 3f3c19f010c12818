package profile

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/clockface/plugin/clock"
)

// Profile is the configuration to start the clock server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// Clock configuration
	Style        string        // CLOCKFACE_STYLE (default: swiss)
	TickInterval time.Duration // CLOCKFACE_TICK_INTERVAL (default: 1s)
	StartFrozen  bool          // CLOCKFACE_START_FROZEN; start in manual mode at 10:10:30
	Timezone     string        // CLOCKFACE_TIMEZONE IANA zone for real time (default: host zone)

	// Resolver configuration
	ResolverProvider   string        // CLOCKFACE_RESOLVER_PROVIDER (default: openai)
	ResolverModel      string        // CLOCKFACE_RESOLVER_MODEL (default: gpt-4o-mini)
	ResolverAPIKey     string        // CLOCKFACE_RESOLVER_API_KEY (legacy: OPENAI_API_KEY)
	ResolverBaseURL    string        // CLOCKFACE_RESOLVER_BASE_URL (provider default when empty)
	ResolverTimeout    time.Duration // CLOCKFACE_RESOLVER_TIMEOUT (default: 15s)
	ResolverMaxRetries int           // CLOCKFACE_RESOLVER_MAX_RETRIES (default: 2)
	ResolverFallback   bool          // CLOCKFACE_RESOLVER_FALLBACK (default: true); rule parser when the LLM fails
	ResolverCacheSize  int           // CLOCKFACE_RESOLVER_CACHE_SIZE (default: 256, 0 disables)
	ResolverCacheTTL   time.Duration // CLOCKFACE_RESOLVER_CACHE_TTL (default: 10m)

	// Resolve endpoint rate limit per client
	ResolveRate  float64 // CLOCKFACE_RESOLVE_RATE requests per second (default: 1)
	ResolveBurst int     // CLOCKFACE_RESOLVE_BURST (default: 3)
}

// Resolver providers.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderOllama   = "ollama"
	ProviderRule     = "rule"
)

var defaultBaseURLs = map[string]string{
	ProviderOpenAI:   "https://api.openai.com/v1",
	ProviderDeepSeek: "https://api.deepseek.com",
	ProviderOllama:   "http://localhost:11434/v1",
}

// Default returns a profile with every field at its default.
func Default() *Profile {
	return &Profile{
		Mode:               "demo",
		Addr:               "",
		Port:               8081,
		Style:              clock.StyleSwiss,
		TickInterval:       time.Second,
		ResolverProvider:   ProviderOpenAI,
		ResolverModel:      "gpt-4o-mini",
		ResolverTimeout:    15 * time.Second,
		ResolverMaxRetries: 2,
		ResolverFallback:   true,
		ResolverCacheSize:  256,
		ResolverCacheTTL:   10 * time.Minute,
		ResolveRate:        1,
		ResolveBurst:       3,
	}
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled reports whether phrases go to a language model rather than only
// the local rule parser.
func (p *Profile) IsLLMEnabled() bool {
	switch p.ResolverProvider {
	case ProviderOllama:
		return true
	case ProviderOpenAI, ProviderDeepSeek:
		return p.ResolverAPIKey != ""
	default:
		return false
	}
}

// FromEnv overrides fields from CLOCKFACE_* environment variables. Unset or
// unparsable variables leave the current value in place.
func (p *Profile) FromEnv() {
	getEnvWithFallback := func(key, legacyKey string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		if legacyKey == "" {
			return ""
		}
		return os.Getenv(legacyKey)
	}

	setString := func(dst *string, key, legacyKey string) {
		if val := getEnvWithFallback(key, legacyKey); val != "" {
			*dst = val
		}
	}
	setInt := func(dst *int, key string) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}

	setString(&p.Mode, "CLOCKFACE_MODE", "")
	setString(&p.Addr, "CLOCKFACE_ADDR", "")
	setInt(&p.Port, "CLOCKFACE_PORT")

	setString(&p.Style, "CLOCKFACE_STYLE", "")
	setDuration(&p.TickInterval, "CLOCKFACE_TICK_INTERVAL")
	setBool(&p.StartFrozen, "CLOCKFACE_START_FROZEN")
	setString(&p.Timezone, "CLOCKFACE_TIMEZONE", "")

	setString(&p.ResolverProvider, "CLOCKFACE_RESOLVER_PROVIDER", "")
	setString(&p.ResolverModel, "CLOCKFACE_RESOLVER_MODEL", "")
	setString(&p.ResolverAPIKey, "CLOCKFACE_RESOLVER_API_KEY", "OPENAI_API_KEY")
	setString(&p.ResolverBaseURL, "CLOCKFACE_RESOLVER_BASE_URL", "")
	setDuration(&p.ResolverTimeout, "CLOCKFACE_RESOLVER_TIMEOUT")
	setInt(&p.ResolverMaxRetries, "CLOCKFACE_RESOLVER_MAX_RETRIES")
	setBool(&p.ResolverFallback, "CLOCKFACE_RESOLVER_FALLBACK")
	setInt(&p.ResolverCacheSize, "CLOCKFACE_RESOLVER_CACHE_SIZE")
	setDuration(&p.ResolverCacheTTL, "CLOCKFACE_RESOLVER_CACHE_TTL")

	if val := os.Getenv("CLOCKFACE_RESOLVE_RATE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			p.ResolveRate = f
		}
	}
	setInt(&p.ResolveBurst, "CLOCKFACE_RESOLVE_BURST")
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	style, err := clock.LookupStyle(p.Style)
	if err != nil {
		return errors.Wrap(err, "invalid style")
	}
	p.Style = style.Name

	if p.TickInterval <= 0 {
		p.TickInterval = time.Second
	}
	if p.ResolverTimeout <= 0 {
		p.ResolverTimeout = 15 * time.Second
	}
	if p.ResolverMaxRetries < 1 {
		p.ResolverMaxRetries = 1
	}
	if p.ResolverCacheSize < 0 {
		p.ResolverCacheSize = 0
	}
	if p.ResolveRate <= 0 {
		p.ResolveRate = 1
	}
	if p.ResolveBurst <= 0 {
		p.ResolveBurst = 1
	}

	p.ResolverProvider = strings.ToLower(strings.TrimSpace(p.ResolverProvider))
	switch p.ResolverProvider {
	case ProviderOpenAI, ProviderDeepSeek, ProviderOllama:
		if p.ResolverBaseURL == "" {
			p.ResolverBaseURL = defaultBaseURLs[p.ResolverProvider]
		}
		if !p.IsLLMEnabled() {
			slog.Warn("no resolver API key configured, falling back to rule parser",
				slog.String("provider", p.ResolverProvider))
			p.ResolverProvider = ProviderRule
		}
	case ProviderRule:
	default:
		return errors.Errorf("unsupported resolver provider: %s", p.ResolverProvider)
	}

	return nil
}
