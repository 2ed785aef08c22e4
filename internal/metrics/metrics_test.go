// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObservePassSuccess(t *testing.T) {
	before := testutil.ToFloat64(PassesTotal.WithLabelValues("obs-ok", "success"))

	ObservePass("obs-ok", 250*time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(PassesTotal.WithLabelValues("obs-ok", "success")))
	assert.Zero(t, testutil.ToFloat64(PassesTotal.WithLabelValues("obs-ok", "error")))
	assert.Greater(t, testutil.ToFloat64(PassLastSuccess.WithLabelValues("obs-ok")), 0.0)
}

func TestObservePassError(t *testing.T) {
	ObservePass("obs-err", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(PassesTotal.WithLabelValues("obs-err", "error")))
	assert.Zero(t, testutil.ToFloat64(PassesTotal.WithLabelValues("obs-err", "success")))
	assert.Zero(t, testutil.ToFloat64(PassLastSuccess.WithLabelValues("obs-err")))
}
