// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// passIDKey is the context key for sync pass IDs.
	passIDKey contextKey = "pass_id"

	// taskNameKey is the context key for the sync task name.
	taskNameKey contextKey = "task"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GeneratePassID creates a new unique pass ID.
// Returns the first 8 characters of a UUID for readability in log output.
func GeneratePassID() string {
	return uuid.New().String()[:8]
}

// ContextWithPassID returns a new context with the given pass ID.
//
//	ctx = logging.ContextWithPassID(ctx, logging.GeneratePassID())
func ContextWithPassID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, passIDKey, id)
}

// ContextWithNewPassID returns a context with a newly generated pass ID.
func ContextWithNewPassID(ctx context.Context) context.Context {
	return ContextWithPassID(ctx, GeneratePassID())
}

// PassIDFromContext retrieves the pass ID from context.
// Returns empty string if not present.
func PassIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(passIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithTaskName returns a new context carrying the sync task name.
func ContextWithTaskName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, taskNameKey, name)
}

// TaskNameFromContext retrieves the task name from context.
// Returns empty string if not present.
func TaskNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(taskNameKey).(string); ok {
		return name
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with context values (task, pass_id) automatically added.
// This is the recommended way to log inside a sync pass.
//
//	logging.Ctx(ctx).Info().Msg("Phase complete")
//	// Output: {"level":"info","task":"gtasks","pass_id":"abc12345","message":"Phase complete"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)

	lctx := logger.With()
	if name := TaskNameFromContext(ctx); name != "" {
		lctx = lctx.Str("task", name)
	}
	if id := PassIDFromContext(ctx); id != "" {
		lctx = lctx.Str("pass_id", id)
	}

	logger = lctx.Logger()
	return &logger
}
