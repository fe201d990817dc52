package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/codegen-api/internal/core"
	"github.com/target/codegen-api/internal/domain/model"
)

// DefaultEventsChannel is the pub/sub channel used when none is configured.
const DefaultEventsChannel = "code-generated"

// RedisEventBus publishes code-generated events over Redis pub/sub.
type RedisEventBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// NewRedisEventBus creates a RedisEventBus bound to channel.
func NewRedisEventBus(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisEventBus {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisEventBus{
		client:  client,
		channel: channel,
		logger:  logger.With("component", "redis_event_bus", "channel", channel),
	}
}

// Channel returns the pub/sub channel name.
func (b *RedisEventBus) Channel() string { return b.channel }

// PublishCodeGenerated serialises evt and publishes it to the channel.
func (b *RedisEventBus) PublishCodeGenerated(ctx context.Context, evt model.CodeGeneratedEvent) error {
	if b == nil || b.client == nil {
		return errors.New("redis event bus not initialized")
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe delivers events to onEvent until ctx is cancelled or the subscription closes.
// It blocks, returning nil on cancellation.
func (b *RedisEventBus) Subscribe(ctx context.Context, onEvent func(model.CodeGeneratedEvent)) error {
	if b == nil || b.client == nil {
		return errors.New("redis event bus not initialized")
	}
	if onEvent == nil {
		return errors.New("onEvent callback required")
	}

	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Debug("redis subscription close failed", "error", err)
		}
	}()

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok || m == nil {
				return nil
			}
			var evt model.CodeGeneratedEvent
			if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
				b.logger.Warn("bad code-generated payload", "error", err)
				continue
			}
			onEvent(evt)
		}
	}
}

// DiscardEventPublisher drops events. It is used when event publishing is disabled.
type DiscardEventPublisher struct{}

// PublishCodeGenerated implements core.EventPublisher.
func (DiscardEventPublisher) PublishCodeGenerated(context.Context, model.CodeGeneratedEvent) error {
	return nil
}

var (
	_ core.EventPublisher = (*RedisEventBus)(nil)
	_ core.EventPublisher = DiscardEventPublisher{}
)
