// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"fmt"
	"time"
)

// Schedule describes how often and how many times a task runs. A zero
// Schedule means "run exactly one pass".
type Schedule struct {
	// Every is the delay between passes. Zero means no repetition by
	// interval.
	Every time.Duration

	// Total limits the number of passes. Zero means unlimited (when Every
	// is set) or exactly one (when it is not).
	Total int
}

// Task binds two adapters, an attribute mapping and a conflict policy into
// one runnable sync definition.
//
// Construction validates the fixed configuration; the fluent schedule
// methods (RunEvery, RunOnce, InTotal) may be chained afterwards:
//
//	task, err := sync.NewTask("gtasks", notionAdapter, gtasksAdapter,
//	    sync.AttrMap{"Title": "title", "Done": "completed"}, sync.Newer)
//	if err != nil { ... }
//	task.RunEvery(5 * time.Minute).InTotal(100)
//
// A schedule misconfiguration (InTotal with a non-positive count) is
// recorded and reported by Err, which the scheduler checks at registration
// time, before the task ever runs.
type Task struct {
	name    string
	primary Adapter
	other   Adapter
	attrs   AttrMap
	mode    ConflictMode

	schedule Schedule
	err      error
}

// NewTask creates a sync task. The name must be usable as a state-store
// key; the attribute map must be non-empty.
func NewTask(name string, primary, other Adapter, attrs AttrMap, mode ConflictMode) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("sync: task name must not be empty")
	}
	if primary == nil || other == nil {
		return nil, fmt.Errorf("sync: task %q requires both adapters", name)
	}
	if err := attrs.Validate(); err != nil {
		return nil, fmt.Errorf("task %q: %w", name, err)
	}
	if !mode.valid() {
		return nil, fmt.Errorf("sync: task %q: invalid conflict mode %d", name, int(mode))
	}

	return &Task{
		name:    name,
		primary: primary,
		other:   other,
		attrs:   attrs,
		mode:    mode,
	}, nil
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// ConflictMode returns the task's conflict policy.
func (t *Task) ConflictMode() ConflictMode {
	return t.mode
}

// Schedule returns the configured schedule.
func (t *Task) Schedule() Schedule {
	return t.schedule
}

// RunEvery schedules the task to repeat with the given delay between
// passes.
func (t *Task) RunEvery(d time.Duration) *Task {
	t.schedule.Every = d
	return t
}

// RunOnce clears any repeat interval; without a Total the task performs a
// single pass.
func (t *Task) RunOnce() *Task {
	t.schedule.Every = 0
	return t
}

// InTotal limits the task to the given number of passes. Counts below one
// are a configuration error, reported by Err.
func (t *Task) InTotal(times int) *Task {
	if times <= 0 {
		t.err = fmt.Errorf("task %q: %w (got %d)", t.name, ErrInvalidRepeatCount, times)
		return t
	}
	t.schedule.Total = times
	return t
}

// Err returns the first schedule configuration error, if any.
func (t *Task) Err() error {
	return t.err
}
