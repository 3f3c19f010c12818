package ai

import (
	"errors"
	"time"

	"github.com/hrygo/clockface/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	LLM LLMConfig
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string  // openai, deepseek, ollama
	Model       string  // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 128
	Temperature float32 // default: 0
	MaxRetries  int     // default: 2
	Timeout     time.Duration
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsLLMEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	// Time extraction needs a short, deterministic answer.
	cfg.LLM = LLMConfig{
		Provider:    p.ResolverProvider,
		Model:       p.ResolverModel,
		APIKey:      p.ResolverAPIKey,
		BaseURL:     p.ResolverBaseURL,
		MaxTokens:   128,
		Temperature: 0,
		MaxRetries:  p.ResolverMaxRetries,
		Timeout:     p.ResolverTimeout,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}

	if c.LLM.Provider != profile.ProviderOllama && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}

	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	return nil
}
