package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/codegen-api/config"
)

// shutdownWaitTimeout is the maximum time to wait for a background service to stop.
const shutdownWaitTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

func newWorkerBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeWorker,
		name: "generation worker",
		start: func(ctx context.Context) error {
			return RunWorker(ctx, WorkerConfig{
				Jobs:         cfg.Services.Jobs,
				Generator:    cfg.Services.LLM.Active,
				Logger:       logger,
				IdleInterval: cfg.Config.Worker.IdleInterval,
				Metrics:      cfg.Services.Observability.Sink(),
			})
		},
	}
}

func newReaperBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			return RunReaper(ctx, ReaperConfig{
				Repo:    cfg.Services.Repo,
				Logger:  logger,
				Config:  cfg.Config.Reaper,
				Metrics: cfg.Services.Observability.Sink(),
			})
		},
	}
}

// The limiter only receives traffic from the HTTP surface, so its sweep follows that mode.
func newRateLimitSweepBackgroundService(cfg *ServiceOrchestrationConfig) backgroundService {
	return backgroundService{
		mode: config.ServiceModeHTTP,
		name: "rate limit sweeper",
		start: func(ctx context.Context) error {
			return RunRateLimitSweeper(ctx, cfg.Services.Limiter)
		},
	}
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, logger *slog.Logger) []backgroundService {
	return []backgroundService{
		newWorkerBackgroundService(cfg, logger),
		newReaperBackgroundService(cfg, logger),
		newRateLimitSweepBackgroundService(cfg),
	}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(
	ctx context.Context,
	deps *serviceStartupDeps,
	services []backgroundService,
) []backgroundServiceHandle {
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{name: svc.name, done: done})
	}
	return handles
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// It blocks until ctx is cancelled, SIGINT or SIGTERM arrives, or a background service fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	signalCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()
	serviceCtx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	background := buildBackgroundServices(cfg, logger)
	deps := &serviceStartupDeps{
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           make(chan error, len(background)),
	}

	var server *http.Server
	if enabledServices[config.ServiceModeHTTP] {
		server = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}
	handles := startBackgroundServices(serviceCtx, deps, background)

	var runErr error
	select {
	case <-serviceCtx.Done():
		logger.Info("shutting down services...")
	case runErr = <-deps.errCh:
		logger.Error("service error", "error", runErr)
	}
	cancel()

	if stopErr := gracefulStop(server, handles, logger); stopErr != nil {
		runErr = errors.Join(runErr, stopErr)
	}
	return runErr
}

// gracefulStop drains the HTTP server, then waits for background services.
func gracefulStop(server *http.Server, handles []backgroundServiceHandle, logger *slog.Logger) error {
	var err error
	if server != nil {
		if shutdownErr := ShutdownHTTPServer(context.Background(), server, logger); shutdownErr != nil {
			err = fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
	}

	for _, svc := range handles {
		waitForService(svc.done, svc.name, logger)
	}

	return err
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	timer := time.NewTimer(shutdownWaitTimeout)
	defer timer.Stop()

	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-timer.C:
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
