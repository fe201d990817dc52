package bootstrap

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/data"
	"github.com/target/codegen-api/internal/domain/model"
)

func slogDiscard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testAppConfig(services string) *config.AppConfig {
	cfg := &config.AppConfig{
		Services: services,
		Generate: config.GenerateConfig{
			Timeout:      5 * time.Second,
			PollInterval: 10 * time.Millisecond,
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute, MaxRequests: 10, SweepInterval: time.Minute},
		Worker:    config.WorkerConfig{IdleInterval: 20 * time.Millisecond},
		Reaper:    config.ReaperConfig{Interval: time.Hour, CompletedMaxAge: time.Hour},
	}
	cfg.Sanitize()
	return cfg
}

// fakeOllama serves the two endpoints the local adapter uses.
func fakeOllama(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/generate":
			_ = json.NewEncoder(w).Encode(map[string]string{"response": reply})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetEnabledServices(t *testing.T) {
	tests := []struct {
		name     string
		services string
		want     []string
	}{
		{name: "default order", services: "reaper,http,worker", want: []string{"http", "worker", "reaper"}},
		{name: "worker only", services: "worker", want: []string{"worker"}},
		{name: "invalid", services: "scheduler", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetEnabledServices(&config.AppConfig{Services: tt.services})
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Empty(t, GetEnabledServices(nil))
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "http,alerts"}))
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http, worker"}))
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "worker,reaper"}))

	err := ValidateServiceConfig(&config.AppConfig{Services: "http"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the worker")
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "http,reaper"}))
}

func TestBuildFailureNotifier(t *testing.T) {
	t.Run("disabled has no sinks", func(t *testing.T) {
		n := buildFailureNotifier(nil, config.ObservabilityNotificationsConfig{})
		assert.False(t, n.Enabled())
	})

	t.Run("slack webhook registers a sink", func(t *testing.T) {
		cfg := config.ObservabilityNotificationsConfig{
			Enabled: true,
			Slack: config.SlackNotificationConfig{
				Enabled:    true,
				WebhookURL: "https://hooks.slack.test/services/T000/B000/XXX",
			},
		}
		cfg.Sanitize()
		n := buildFailureNotifier(nil, cfg)
		assert.True(t, n.Enabled())
	})
}

func TestBuildEventPublisher(t *testing.T) {
	disabled := buildEventPublisher(config.EventsConfig{}, nil, nil)
	assert.IsType(t, data.DiscardEventPublisher{}, disabled)

	// Enabled without a client still degrades to the discard publisher.
	noClient := buildEventPublisher(config.EventsConfig{Enabled: true, Channel: "code-generated"}, nil, slogDiscard())
	assert.IsType(t, data.DiscardEventPublisher{}, noClient)
}

func TestNewServices(t *testing.T) {
	_, err := NewServices(nil)
	require.Error(t, err)

	cfg := testAppConfig("http,worker,reaper")
	svcs, err := NewServices(&ServiceDeps{Config: cfg, Logger: slogDiscard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close() })

	require.NotNil(t, svcs.Repo)
	require.NotNil(t, svcs.Jobs)
	require.NotNil(t, svcs.Generate)
	require.NotNil(t, svcs.Providers)
	require.NotNil(t, svcs.Limiter)
	assert.Nil(t, svcs.Observability.Sink())
	// No API key configured: auto resolves to the local endpoint.
	assert.Equal(t, "local-llm", svcs.LLM.Active.Name())
}

func TestRunServicesWithShutdown_ProcessesJobsUntilCancelled(t *testing.T) {
	ollama := fakeOllama(t, "export const answer = 42;")

	cfg := testAppConfig("worker,reaper")
	cfg.LLM.Provider = config.LLMProviderLocal
	cfg.LLM.Local.BaseURL = ollama.URL

	svcs, err := NewServices(&ServiceDeps{Config: cfg, Logger: slogDiscard(), HTTPClient: ollama.Client()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServicesWithShutdown(ctx, &ServiceOrchestrationConfig{
			Config:   cfg,
			Services: svcs,
			Logger:   slogDiscard(),
		})
	}()

	resp, err := svcs.Generate.Generate(ctx, "client-a", model.GenerateRequest{
		Prompt: "answer",
		Target: model.TargetBackend,
	})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "export const answer = 42;", resp.Files[0].Content)
	assert.Contains(t, resp.GitDiff, "+export const answer = 42;")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop after cancellation")
	}
}

func TestRunServicesWithShutdown_RejectsBadConfig(t *testing.T) {
	require.Error(t, RunServicesWithShutdown(context.Background(), nil))
	require.Error(t, RunServicesWithShutdown(context.Background(), &ServiceOrchestrationConfig{}))
	require.Error(t, RunServicesWithShutdown(context.Background(), &ServiceOrchestrationConfig{
		Config: &config.AppConfig{Services: "bogus"},
	}))
}
