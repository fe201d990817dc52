package config

import (
	"strings"
	"time"
)

// DefaultClientID identifies callers that do not send a client header.
const DefaultClientID = "demo-client"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// WriteTimeout bounds response writes. It must exceed GENERATE_TIMEOUT
	// so a timed-out generate call can still report its error.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"45s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	if h.WriteTimeout < time.Second {
		h.WriteTimeout = time.Second
	}
}

// GenerateConfig controls the synchronous wait performed by the generate endpoint.
type GenerateConfig struct {
	// Timeout is how long a request waits for its job to finish.
	Timeout time.Duration `env:"GENERATE_TIMEOUT" envDefault:"30s"`

	// PollInterval is the fallback re-check period while waiting.
	PollInterval time.Duration `env:"GENERATE_POLL_INTERVAL" envDefault:"500ms"`

	// DefaultClientID is used for rate limiting when no X-Client-ID header is present.
	DefaultClientID string `env:"GENERATE_DEFAULT_CLIENT_ID" envDefault:"demo-client"`
}

// Sanitize applies guardrails to generate configuration values.
func (g *GenerateConfig) Sanitize() {
	if g.Timeout <= 0 {
		g.Timeout = 30 * time.Second
	}
	if g.PollInterval <= 0 {
		g.PollInterval = 500 * time.Millisecond
	}
	if g.PollInterval > g.Timeout {
		g.PollInterval = g.Timeout
	}
	g.DefaultClientID = strings.TrimSpace(g.DefaultClientID)
	if g.DefaultClientID == "" {
		g.DefaultClientID = DefaultClientID
	}
}
