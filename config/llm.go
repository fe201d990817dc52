package config

import (
	"fmt"
	"strings"
	"time"
)

// LLMProvider selects the adapter variant used by the worker.
type LLMProvider string

const (
	// LLMProviderAuto picks OpenAI when an API key is configured, otherwise the local endpoint.
	LLMProviderAuto LLMProvider = "auto"
	// LLMProviderOpenAI uses the key-based adapter.
	LLMProviderOpenAI LLMProvider = "openai"
	// LLMProviderLocal uses the local HTTP endpoint adapter.
	LLMProviderLocal LLMProvider = "local"
)

// UnmarshalText implements encoding.TextUnmarshaler for LLMProvider.
func (p *LLMProvider) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "auto", "openai", "local":
		*p = LLMProvider(v)
		return nil
	default:
		return fmt.Errorf("invalid LLMProvider: %q (valid options: auto, openai, local)", v)
	}
}

// LLMConfig groups adapter configuration.
type LLMConfig struct {
	Provider LLMProvider `env:"LLM_PROVIDER" envDefault:"auto"`
	OpenAI   OpenAIConfig
	Local    LocalLLMConfig
}

// Resolve returns the concrete provider, applying the auto rule.
func (c *LLMConfig) Resolve() LLMProvider {
	switch c.Provider {
	case LLMProviderOpenAI, LLMProviderLocal:
		return c.Provider
	default:
		if c.OpenAI.APIKey != "" {
			return LLMProviderOpenAI
		}
		return LLMProviderLocal
	}
}

// Sanitize applies guardrails to LLM configuration values.
func (c *LLMConfig) Sanitize() {
	if c.Provider == "" {
		c.Provider = LLMProviderAuto
	}
	c.OpenAI.sanitize()
	c.Local.sanitize()
}

// OpenAIConfig configures the key-based adapter.
type OpenAIConfig struct {
	// APIKey enables the adapter. An empty key makes it report unavailable.
	APIKey string `env:"OPENAI_API_KEY"`

	// Live switches from prompt templates to real chat completion calls.
	Live bool `env:"LLM_OPENAI_LIVE" envDefault:"false"`

	Model       string  `env:"LLM_OPENAI_MODEL"       envDefault:"gpt-4"`
	BaseURL     string  `env:"LLM_OPENAI_BASE_URL"`
	MaxTokens   int64   `env:"LLM_OPENAI_MAX_TOKENS"  envDefault:"4000"`
	Temperature float64 `env:"LLM_OPENAI_TEMPERATURE" envDefault:"0.1"`
}

func (c *OpenAIConfig) sanitize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = "gpt-4"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4000
	}
	if c.Temperature < 0 {
		c.Temperature = 0
	}
}

// LocalLLMConfig configures the local endpoint adapter (Ollama-compatible).
type LocalLLMConfig struct {
	BaseURL      string        `env:"LLM_LOCAL_BASE_URL"      envDefault:"http://localhost:11434"`
	Model        string        `env:"LLM_LOCAL_MODEL"         envDefault:"codellama"`
	ProbeTimeout time.Duration `env:"LLM_LOCAL_PROBE_TIMEOUT" envDefault:"2s"`
}

func (c *LocalLLMConfig) sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model = strings.TrimSpace(c.Model); c.Model == "" {
		c.Model = "codellama"
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
}
