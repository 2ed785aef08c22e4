// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

// Package scheduler runs registered sync tasks under a supervision tree.
//
// Each task becomes one supervised service that loads its persisted state,
// runs reconciliation passes on the task's schedule and saves state after
// every successful pass. Tasks are isolated from one another: a failing
// pass is reported and retried on the next scheduled run without touching
// sibling tasks, and a panicking task is restarted by the supervisor with
// exponential backoff.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/notisync/notisync/internal/logging"
	"github.com/notisync/notisync/internal/state"
	"github.com/notisync/notisync/internal/sync"
)

// Config holds supervision parameters for the scheduler.
type Config struct {
	// FailureThreshold is the number of service failures before the
	// supervisor enters backoff. Default: 5
	FailureThreshold float64 `koanf:"failure_threshold"`

	// FailureDecay is the rate at which failures decay, in seconds.
	// Default: 30
	FailureDecay float64 `koanf:"failure_decay"`

	// FailureBackoff is how long the supervisor waits once the threshold is
	// exceeded. Default: 15s
	FailureBackoff time.Duration `koanf:"failure_backoff"`

	// ShutdownTimeout is the maximum time to wait for tasks to stop.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DefaultConfig returns suture's documented production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// TaskResult reports the outcome of one reconciliation pass to observers.
type TaskResult struct {
	// Task is the task name.
	Task string

	// Pass is the 1-based pass number within this scheduler run.
	Pass int

	// Err is the pass error, nil on success.
	Err error

	// Duration is how long the pass took.
	Duration time.Duration

	// Done is true when this was the task's final pass.
	Done bool
}

// Scheduler owns the supervisor tree for a set of sync tasks.
//
// Register tasks before calling Serve; the supervisor starts every task
// service when it begins serving.
type Scheduler struct {
	sup     *suture.Supervisor
	store   state.Store
	results chan TaskResult
	tasks   map[string]suture.ServiceToken
}

// New creates a scheduler persisting task state to the given store.
func New(store state.Store, cfg Config) *Scheduler {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// MustHook has a pointer receiver, so the handler address is required.
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}

	sup := suture.New("notisync", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	return &Scheduler{
		sup:     sup,
		store:   store,
		results: make(chan TaskResult, 64),
		tasks:   make(map[string]suture.ServiceToken),
	}
}

// Register adds a task to the scheduler. It fails on schedule
// misconfiguration recorded by the task's fluent builder and on duplicate
// task names, so configuration mistakes surface before anything runs.
func (s *Scheduler) Register(task *sync.Task) error {
	if err := task.Err(); err != nil {
		return fmt.Errorf("scheduler: register: %w", err)
	}
	if _, dup := s.tasks[task.Name()]; dup {
		return fmt.Errorf("scheduler: task %q already registered", task.Name())
	}

	svc := &taskService{
		task:    task,
		store:   s.store,
		results: s.results,
	}
	s.tasks[task.Name()] = s.sup.Add(svc)

	logging.Info().
		Str("task", task.Name()).
		Str("mode", task.ConflictMode().String()).
		Dur("every", task.Schedule().Every).
		Int("total", task.Schedule().Total).
		Msg("Task registered")
	return nil
}

// Remove stops and removes a registered task.
func (s *Scheduler) Remove(name string) error {
	token, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("scheduler: task %q not registered", name)
	}
	delete(s.tasks, name)
	return s.sup.Remove(token)
}

// Results returns the channel on which pass outcomes are reported. The
// channel is buffered; results are dropped when no one is receiving.
func (s *Scheduler) Results() <-chan TaskResult {
	return s.results
}

// Serve runs all registered tasks and blocks until the context is
// canceled or every task has completed its schedule.
func (s *Scheduler) Serve(ctx context.Context) error {
	return s.sup.Serve(ctx)
}

// ServeBackground starts the scheduler in a background goroutine and
// returns a channel receiving the terminal error.
func (s *Scheduler) ServeBackground(ctx context.Context) <-chan error {
	return s.sup.ServeBackground(ctx)
}
