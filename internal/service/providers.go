package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
)

const defaultProbeTimeout = 3 * time.Second

// ProviderRegistration describes one listed provider and the adapter that backs it.
type ProviderRegistration struct {
	ID        string
	Name      string
	Type      model.ProviderType
	Models    []string
	Generator core.CodeGenerator
}

// OpenAIProvider returns the registration for the key-based adapter.
func OpenAIProvider(gen core.CodeGenerator) ProviderRegistration {
	return ProviderRegistration{
		ID:        "openai",
		Name:      "OpenAI",
		Type:      model.ProviderTypeOpenAI,
		Models:    []string{"gpt-4", "gpt-3.5-turbo", "gpt-4-turbo"},
		Generator: gen,
	}
}

// LocalProvider returns the registration for the local endpoint adapter.
func LocalProvider(gen core.CodeGenerator) ProviderRegistration {
	return ProviderRegistration{
		ID:        "local-llm",
		Name:      "Local LLM",
		Type:      model.ProviderTypeLocal,
		Models:    []string{"llama2", "codellama", "mistral"},
		Generator: gen,
	}
}

// ProviderServiceOptions groups dependencies for ProviderService.
type ProviderServiceOptions struct {
	Providers    []ProviderRegistration // Required: listed in order
	ProbeTimeout time.Duration          // Optional: bound on the whole listing
	Logger       *slog.Logger           // Optional: structured logger
}

// ProviderService reports which LLM backends are configured and reachable.
type ProviderService struct {
	providers    []ProviderRegistration
	probeTimeout time.Duration
	logger       *slog.Logger
}

// NewProviderService constructs a new ProviderService.
func NewProviderService(opts ProviderServiceOptions) (*ProviderService, error) {
	if len(opts.Providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	for _, p := range opts.Providers {
		if p.Generator == nil {
			return nil, errors.New("provider " + p.ID + " has no generator")
		}
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ProviderService{
		providers:    opts.Providers,
		probeTimeout: timeout,
		logger:       logger.With("component", "provider_service"),
	}, nil
}

// List probes every provider concurrently and returns them in registration order.
func (s *ProviderService) List(ctx context.Context) model.ListProvidersResponse {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	out := make([]model.Provider, len(s.providers))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			out[i] = model.Provider{
				ID:        p.ID,
				Name:      p.Name,
				Type:      p.Type,
				Available: p.Generator.IsAvailable(gctx),
				Models:    append([]string(nil), p.Models...),
			}
			return nil
		})
	}
	// probes never return errors; unavailability is reported per provider
	_ = g.Wait()

	s.logger.DebugContext(ctx, "providers probed", "count", len(out))
	return model.ListProvidersResponse{Providers: out}
}
