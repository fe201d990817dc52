package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server and the rate-limit window sweep.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeWorker runs the code generation worker loop.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper deletes terminal jobs past their retention window.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeWorker,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// WorkerConfig contains generation worker configuration.
type WorkerConfig struct {
	// IdleInterval is the longest the worker sleeps when no job is pending.
	// Enqueue notifications wake it earlier.
	IdleInterval time.Duration `env:"WORKER_IDLE_INTERVAL" envDefault:"1s"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.IdleInterval < 10*time.Millisecond {
		w.IdleInterval = 10 * time.Millisecond
	}
}

// RateLimitConfig contains fixed-window admission limits for the generate endpoint.
type RateLimitConfig struct {
	// Window is the fixed window length.
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`

	// MaxRequests is the number of admitted requests per client per window.
	MaxRequests int `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"10"`

	// SweepInterval controls how often expired entries are dropped.
	SweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Window < time.Second {
		r.Window = time.Second
	}
	if r.MaxRequests < 1 {
		r.MaxRequests = 1
	}
	if r.SweepInterval < time.Second {
		r.SweepInterval = time.Second
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1h"`

	// CompletedMaxAge is how long a terminal job stays readable after completedAt.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"1h"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
	if r.CompletedMaxAge < time.Minute {
		r.CompletedMaxAge = time.Minute
	}
}
