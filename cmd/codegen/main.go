package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.IsDev {
		logger = bootstrap.NewLogger(slog.LevelDebug)
	}

	logStartupInfo(ctx, logger, &cfg)

	if err = bootstrap.ValidateServiceConfig(&cfg); err != nil {
		return err
	}

	redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting codegen service",
		"http_addr", cfg.HTTP.Addr,
		"llm_provider", cfg.LLM.Resolve(),
		"events_enabled", cfg.Events.Enabled,
		"dev_mode", cfg.IsDev,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
	if !cfg.IsHTTPServerEnabled() {
		logger.WarnContext(ctx, "http server disabled; nothing can enqueue jobs into this process")
	}
	if !cfg.IsReaperEnabled() {
		logger.WarnContext(ctx, "reaper disabled; terminal jobs are kept until restart")
	}
}

// initInfrastructure connects Redis when code-generated events are enabled.
// Events are published on terminal transitions, which only the worker makes.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if !cfg.Events.Enabled {
		logger.InfoContext(ctx, "code-generated events disabled; skipping redis connection")
		return nil, nil
	}
	if !cfg.IsWorkerEnabled() {
		logger.InfoContext(ctx, "worker disabled; no code-generated events to publish")
		return nil, nil
	}

	client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisConnectConfig{
		Redis:  cfg.Redis,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
