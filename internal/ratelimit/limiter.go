// Package ratelimit guards the login endpoint against credential stuffing.
// Attempts are counted per source IP in a fixed window; crossing the
// threshold blocks the IP for a cool-off period.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"aquicultura/internal/platform/metrics"
	domainerrors "aquicultura/pkg/domainerrors"
)

const (
	attemptKeyPrefix = "login:attempts:"
	blockKeyPrefix   = "login:block:"
)

// Store is the counter backend, Redis in production and in-memory otherwise.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	SetBlock(ctx context.Context, key string, ttl time.Duration) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Limiter applies the fixed-window policy. It fails open: a broken counter
// backend degrades to unlimited logins rather than locking everyone out.
type Limiter struct {
	store       Store
	maxAttempts int64
	window      time.Duration
	blockFor    time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(store Store, maxAttempts int, window, blockFor time.Duration, logger *slog.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{
		store:       store,
		maxAttempts: int64(maxAttempts),
		window:      window,
		blockFor:    blockFor,
		logger:      logger,
		metrics:     m,
	}
}

// Check answers whether the IP may attempt a login right now.
func (l *Limiter) Check(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	blocked, err := l.store.IsBlocked(ctx, blockKeyPrefix+ip)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit check failed, allowing request", "error", err, "ip", ip)
		return nil
	}
	if blocked {
		if l.metrics != nil {
			l.metrics.RateLimitBlocked.Inc()
		}
		return domainerrors.New(domainerrors.CodeTooManyRequests, "too many login attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed attempt and installs the block once the
// window threshold is crossed.
func (l *Limiter) RecordFailure(ctx context.Context, ip string) {
	if ip == "" {
		return
	}
	count, err := l.store.Incr(ctx, attemptKeyPrefix+ip, l.window)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to count login attempt", "error", err, "ip", ip)
		return
	}
	if count < l.maxAttempts {
		return
	}
	if err := l.store.SetBlock(ctx, blockKeyPrefix+ip, l.blockFor); err != nil {
		l.logger.ErrorContext(ctx, "failed to block ip", "error", err, "ip", ip)
		return
	}
	l.logger.WarnContext(ctx, "ip blocked after repeated login failures",
		"ip", ip,
		"attempts", count,
		"block_for", l.blockFor,
	)
}

// Reset clears the attempt counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, ip string) {
	if ip == "" {
		return
	}
	if err := l.store.Delete(ctx, attemptKeyPrefix+ip); err != nil {
		l.logger.ErrorContext(ctx, "failed to reset login attempts", "error", err, "ip", ip)
	}
}
