// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitedAdapter throttles every I/O method of an Adapter with a
// shared token bucket. Accessor methods pass through untouched.
type rateLimitedAdapter struct {
	inner   Adapter
	limiter *rate.Limiter
}

// WithRateLimit wraps an adapter so its I/O calls respect the given
// requests-per-second budget. The Notion API allows roughly three requests
// per second, so a Notion-backed adapter typically uses
// WithRateLimit(a, rate.Limit(3), 3).
//
// Waiting honors the call's context: a cancelled pass stops waiting and
// returns the context error.
func WithRateLimit(inner Adapter, limit rate.Limit, burst int) Adapter {
	return &rateLimitedAdapter{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (r *rateLimitedAdapter) ListObjects(ctx context.Context) ([]Object, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.ListObjects(ctx)
}

func (r *rateLimitedAdapter) Identity(obj Object) string {
	return r.inner.Identity(obj)
}

func (r *rateLimitedAdapter) ModifiedAt(obj Object) time.Time {
	return r.inner.ModifiedAt(obj)
}

func (r *rateLimitedAdapter) Fingerprint(obj Object) string {
	return r.inner.Fingerprint(obj)
}

func (r *rateLimitedAdapter) Attributes(obj Object) (map[string]any, error) {
	return r.inner.Attributes(obj)
}

func (r *rateLimitedAdapter) SetAttribute(ctx context.Context, obj Object, attr string, value any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.SetAttribute(ctx, obj, attr, value)
}

func (r *rateLimitedAdapter) Delete(ctx context.Context, obj Object) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.inner.Delete(ctx, obj)
}

func (r *rateLimitedAdapter) Create(ctx context.Context, attrs map[string]any) (Object, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Create(ctx, attrs)
}
