package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/adapters/llm"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/data"
	"github.com/target/codegen-api/internal/observability/notify/slack"
	"github.com/target/codegen-api/internal/observability/statsd"
	"github.com/target/codegen-api/internal/service"
	"github.com/target/codegen-api/internal/service/failurenotifier"
)

const metricsPrefix = "codegen"

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Repo          *data.JobRepo
	Jobs          *service.JobService
	Generate      *service.GenerateService
	Providers     *service.ProviderService
	Limiter       *service.RateLimiter
	LLM           llm.Adapters
	Events        core.EventPublisher
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // Optional: enables event publishing when Events.Enabled
	Logger      *slog.Logger
	HTTPClient  *http.Client // Optional: shared by the LLM adapters
	Clock       service.Clock
	// TimeProvider overrides the job store clock (tests only).
	TimeProvider data.TimeProvider
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  metricsPrefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications),
		NotifierConfig:  cfg.Notifications,
	}
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled || !cfg.Slack.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	client, err := slack.NewClient(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		Username:   cfg.Slack.Username,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
	})
	if err != nil {
		baseLogger.Error("failed to initialise slack notifier", "error", err)
		return failurenotifier.NewService(failurenotifier.Options{Logger: baseLogger})
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger,
		Sinks:  []failurenotifier.SinkRegistration{{Name: "slack", Sink: client}},
	})
}

// buildEventPublisher returns the Redis publisher when events are enabled and a client is present.
//
//nolint:ireturn // callers only need the publishing port.
func buildEventPublisher(cfg config.EventsConfig, client redis.UniversalClient, logger *slog.Logger) core.EventPublisher {
	if !cfg.Enabled {
		return data.DiscardEventPublisher{}
	}
	if client == nil {
		logger.Warn("events enabled but no redis client configured; dropping code-generated events")
		return data.DiscardEventPublisher{}
	}
	return data.NewRedisEventBus(client, cfg.Channel, logger)
}

// NewServices wires the job store, limiter, adapters and domain services from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, cfg.Observability)
	metrics := observability.Sink()

	repo := data.NewJobRepo(data.RepoConfig{
		Logger:       logger,
		TimeProvider: deps.TimeProvider,
	})
	events := buildEventPublisher(cfg.Events, deps.RedisClient, logger)

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:            repo,
		Events:          events,
		FailureNotifier: observability.FailureNotifier,
		Logger:          logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	limiter, err := service.NewRateLimiter(service.RateLimiterOptions{
		Config: cfg.RateLimit,
		Clock:  deps.Clock,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create rate limiter: %w", err)
	}

	generate, err := service.NewGenerateService(service.GenerateServiceOptions{
		Jobs:    jobs,
		Limiter: limiter,
		Config:  cfg.Generate,
		Clock:   deps.Clock,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create generate service: %w", err)
	}

	adapters := llm.NewAdapters(cfg.LLM, logger, deps.HTTPClient)
	providers, err := service.NewProviderService(service.ProviderServiceOptions{
		Providers: []service.ProviderRegistration{
			service.OpenAIProvider(adapters.OpenAI),
			service.LocalProvider(adapters.Local),
		},
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create provider service: %w", err)
	}

	logger.Info("services initialised",
		"llm_provider", cfg.LLM.Resolve(),
		"events_enabled", cfg.Events.Enabled && deps.RedisClient != nil,
		"metrics_enabled", metrics != nil,
		"failure_notifications", observability.FailureNotifier.Enabled(),
	)

	return ServiceContainer{
		Repo:          repo,
		Jobs:          jobs,
		Generate:      generate,
		Providers:     providers,
		Limiter:       limiter,
		LLM:           adapters,
		Events:        events,
		Observability: observability,
	}, nil
}

// Sink returns the metrics sink as an interface, nil when metrics are disabled.
//
//nolint:ireturn // a typed nil must not leak into the interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// Close releases resources owned by the container.
func (c ServiceContainer) Close() error {
	if c.Observability.MetricsSink == nil {
		return nil
	}
	if err := c.Observability.MetricsSink.Close(); err != nil {
		return fmt.Errorf("close statsd client: %w", err)
	}
	return nil
}
