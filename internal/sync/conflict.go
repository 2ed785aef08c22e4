// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import "fmt"

// ConflictMode selects how a task resolves an attribute changed on both
// sides since the last pass. It is bound at task construction and constant
// for the task's lifetime.
type ConflictMode int

const (
	// Newer takes the value from the side with the later modification
	// timestamp. This is the default.
	Newer ConflictMode = iota

	// PreferPrimary always takes the primary side's value.
	PreferPrimary

	// PreferOther always takes the secondary side's value.
	PreferOther

	// Fail aborts the pass with a ConflictError. Use this when conflicting
	// edits indicate an operational problem that a human should inspect.
	Fail
)

// conflictModeNames maps config strings to modes. The strings match the
// values accepted in YAML/env configuration.
var conflictModeNames = map[string]ConflictMode{
	"newer":   Newer,
	"primary": PreferPrimary,
	"other":   PreferOther,
	"error":   Fail,
}

// ParseConflictMode converts a configuration string to a ConflictMode.
func ParseConflictMode(s string) (ConflictMode, error) {
	if mode, ok := conflictModeNames[s]; ok {
		return mode, nil
	}
	return Newer, fmt.Errorf("sync: unknown conflict mode %q", s)
}

// String returns the configuration name of the mode.
func (m ConflictMode) String() string {
	switch m {
	case Newer:
		return "newer"
	case PreferPrimary:
		return "primary"
	case PreferOther:
		return "other"
	case Fail:
		return "error"
	default:
		return fmt.Sprintf("ConflictMode(%d)", int(m))
	}
}

// valid reports whether the mode is one of the defined values.
func (m ConflictMode) valid() bool {
	return m >= Newer && m <= Fail
}
