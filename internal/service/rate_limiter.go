package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/target/codegen-api/config"
	"github.com/target/codegen-api/internal/core"
)

// RateLimiterOptions groups dependencies for RateLimiter.
type RateLimiterOptions struct {
	Config config.RateLimitConfig // Required: window and request budget
	Clock  Clock                  // Optional: defaults to wall clock
	Logger *slog.Logger           // Optional: structured logger
}

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter is a fixed-window per-client request counter.
// State is process local.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	window        time.Duration
	maxRequests   int
	sweepInterval time.Duration
	clock         Clock
	logger        *slog.Logger
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(opts RateLimiterOptions) (*RateLimiter, error) {
	if opts.Config.Window <= 0 {
		return nil, errors.New("rate limit window must be positive")
	}
	if opts.Config.MaxRequests <= 0 {
		return nil, errors.New("rate limit max requests must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sweep := opts.Config.SweepInterval
	if sweep <= 0 {
		sweep = time.Minute
	}

	return &RateLimiter{
		entries:       make(map[string]*rateLimitEntry),
		window:        opts.Config.Window,
		maxRequests:   opts.Config.MaxRequests,
		sweepInterval: sweep,
		clock:         resolveClock(opts.Clock),
		logger:        logger.With("component", "rate_limiter"),
	}, nil
}

// CheckLimit admits or rejects one request from clientID.
func (l *RateLimiter) CheckLimit(clientID string) core.RateLimitDecision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[clientID]
	if !ok || !entry.resetTime.After(now) {
		entry = &rateLimitEntry{count: 1, resetTime: now.Add(l.window)}
		l.entries[clientID] = entry
		return core.RateLimitDecision{
			Allowed:   true,
			Remaining: l.maxRequests - 1,
			ResetTime: entry.resetTime,
		}
	}

	if entry.count >= l.maxRequests {
		return core.RateLimitDecision{
			Allowed:   false,
			Remaining: 0,
			ResetTime: entry.resetTime,
		}
	}

	entry.count++
	return core.RateLimitDecision{
		Allowed:   true,
		Remaining: l.maxRequests - entry.count,
		ResetTime: entry.resetTime,
	}
}

// Sweep deletes entries whose window has elapsed and returns how many were removed.
func (l *RateLimiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, entry := range l.entries {
		if !entry.resetTime.After(now) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps expired entries on a fixed interval until ctx is cancelled.
// Returns nil on graceful shutdown.
func (l *RateLimiter) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "starting rate limit sweeper", "interval", l.sweepInterval)

	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				l.logger.DebugContext(ctx, "swept expired rate limit entries", "count", n)
			}
		}
	}
}

var _ core.RateLimiter = (*RateLimiter)(nil)
