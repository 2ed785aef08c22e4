// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/notisync/notisync/internal/logging"
	"github.com/notisync/notisync/internal/metrics"
)

// BreakerConfig tunes the circuit breaker wrapped around one adapter.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval is the cyclic period in which the closed breaker clears its
	// failure counts. Zero keeps counts for the life of the breaker.
	Interval time.Duration `koanf:"interval"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `koanf:"timeout"`

	// ConsecutiveFailures opens the breaker once this many calls in a row
	// have failed.
	ConsecutiveFailures uint32 `koanf:"consecutive_failures"`
}

// DefaultBreakerConfig returns conservative defaults suitable for rate-
// limited SaaS APIs.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// breakerAdapter routes every I/O method of an Adapter through a shared
// circuit breaker. Accessor methods pass through untouched.
type breakerAdapter struct {
	inner Adapter
	name  string
	cb    *gobreaker.CircuitBreaker[Object]
}

// WithBreaker wraps an adapter so that repeated remote failures trip a
// circuit breaker and fail passes fast instead of hammering a degraded
// service. The name labels the breaker in logs and metrics; use one
// wrapped adapter per remote service.
//
// A tripped breaker returns gobreaker.ErrOpenState from every I/O method,
// which aborts the pass like any other adapter error. The next scheduled
// pass probes again once the breaker's timeout has elapsed.
func WithBreaker(name string, inner Adapter, cfg BreakerConfig) Adapter {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(gobreaker.StateClosed))
	return &breakerAdapter{
		inner: inner,
		name:  name,
		cb:    gobreaker.NewCircuitBreaker[Object](settings),
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// execute runs fn through the breaker and records the request outcome.
func (b *breakerAdapter) execute(fn func() (Object, error)) (Object, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

func (b *breakerAdapter) ListObjects(ctx context.Context) ([]Object, error) {
	result, err := b.execute(func() (Object, error) {
		return b.inner.ListObjects(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]Object), nil
}

func (b *breakerAdapter) Identity(obj Object) string {
	return b.inner.Identity(obj)
}

func (b *breakerAdapter) ModifiedAt(obj Object) time.Time {
	return b.inner.ModifiedAt(obj)
}

func (b *breakerAdapter) Fingerprint(obj Object) string {
	return b.inner.Fingerprint(obj)
}

func (b *breakerAdapter) Attributes(obj Object) (map[string]any, error) {
	return b.inner.Attributes(obj)
}

func (b *breakerAdapter) SetAttribute(ctx context.Context, obj Object, attr string, value any) error {
	_, err := b.execute(func() (Object, error) {
		return nil, b.inner.SetAttribute(ctx, obj, attr, value)
	})
	return err
}

func (b *breakerAdapter) Delete(ctx context.Context, obj Object) error {
	_, err := b.execute(func() (Object, error) {
		return nil, b.inner.Delete(ctx, obj)
	})
	return err
}

func (b *breakerAdapter) Create(ctx context.Context, attrs map[string]any) (Object, error) {
	return b.execute(func() (Object, error) {
		return b.inner.Create(ctx, attrs)
	})
}
