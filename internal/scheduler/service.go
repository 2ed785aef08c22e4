// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/notisync/notisync/internal/logging"
	"github.com/notisync/notisync/internal/metrics"
	"github.com/notisync/notisync/internal/state"
	"github.com/notisync/notisync/internal/sync"
)

// taskService adapts one sync task to a suture.Service.
//
// Serve owns the task's full lifecycle for one scheduler run: state load,
// the pass loop, persistence and schedule accounting. A failed pass is
// reported and the loop continues on schedule; state advances only after a
// successful pass that was also saved. The service returns
// suture.ErrDoNotRestart when the schedule is exhausted so the supervisor
// retires it instead of restarting it.
type taskService struct {
	task    *sync.Task
	store   state.Store
	results chan<- TaskResult
}

func (s *taskService) String() string {
	return "task-" + s.task.Name()
}

func (s *taskService) Serve(ctx context.Context) error {
	name := s.task.Name()
	ctx = logging.ContextWithTaskName(ctx, name)

	st, err := s.store.Load(ctx, name)
	switch {
	case errors.Is(err, state.ErrNotFound):
		// First run: the pass performs the initial reconciliation.
		st = nil
	case err != nil:
		// Unreadable state is not recoverable by retrying the pass loop;
		// let the supervisor back off and retry the load.
		return fmt.Errorf("load state for task %q: %w", name, err)
	}

	schedule := s.task.Schedule()
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last := schedule.Total > 0 && pass >= schedule.Total ||
			schedule.Total == 0 && schedule.Every == 0

		newState, duration, err := s.runPass(ctx, st)
		if err == nil {
			st = newState
		}
		s.report(TaskResult{Task: name, Pass: pass, Err: err, Duration: duration, Done: last})

		if last {
			logging.Info().Str("task", name).Int("passes", pass).Msg("Task schedule complete")
			return suture.ErrDoNotRestart
		}

		timer := time.NewTimer(schedule.Every)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// runPass executes one reconciliation pass and persists its result. State
// is saved only after a fully successful pass; a save failure counts as a
// pass failure and the in-memory state is not advanced.
func (s *taskService) runPass(ctx context.Context, st *state.SyncState) (*state.SyncState, time.Duration, error) {
	name := s.task.Name()
	pctx := logging.ContextWithNewPassID(ctx)

	start := time.Now()
	newState, err := s.task.Sync(pctx, st)
	if err == nil {
		if saveErr := s.store.Save(pctx, name, newState); saveErr != nil {
			err = fmt.Errorf("save state for task %q: %w", name, saveErr)
		}
	}
	duration := time.Since(start)

	metrics.ObservePass(name, duration, err)
	if err != nil {
		logging.Ctx(pctx).Error().Err(err).Dur("duration", duration).Msg("Sync pass failed")
		return nil, duration, err
	}

	logging.Ctx(pctx).Info().
		Dur("duration", duration).
		Int("paired", newState.Len()).
		Msg("Sync pass complete")
	return newState, duration, nil
}

// report delivers a result without ever blocking the pass loop.
func (s *taskService) report(r TaskResult) {
	select {
	case s.results <- r:
	default:
	}
}
