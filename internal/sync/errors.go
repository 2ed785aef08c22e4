// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"errors"
	"fmt"
)

// ErrInvalidRepeatCount is recorded by Task.InTotal for counts below one
// and surfaced when the task is registered with a scheduler.
var ErrInvalidRepeatCount = errors.New("sync: repeat count must be positive")

// ConflictError reports an attribute changed on both sides under
// ConflictMode Fail. It aborts the pass.
type ConflictError struct {
	Task      string
	PrimaryID string
	OtherID   string
	Attr      string
	Primary   any
	Other     any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("sync: conflict on attribute %q between primary %s (%v) and other %s (%v)",
		e.Attr, e.PrimaryID, e.Primary, e.OtherID, e.Other)
}

// VerificationError reports that a freshly created mirror object does not
// carry the attribute values that were written. It signals an adapter
// contract violation (silent defaulting or rejection on the remote side)
// and always aborts the pass: accepting the divergent object would corrupt
// every subsequent three-way merge.
type VerificationError struct {
	Task string
	Side string // side the object was created on: "primary" or "other"
	Attr string
	Want any
	Got  any
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("sync: created %s object diverges on attribute %q: wrote %v, read back %v",
		e.Side, e.Attr, e.Want, e.Got)
}

// MissingAttrError reports that an adapter's Attributes projection lacks a
// canonical attribute named in the task's AttrMap.
type MissingAttrError struct {
	Side string
	ID   string
	Attr string
}

func (e *MissingAttrError) Error() string {
	return fmt.Sprintf("sync: %s object %s has no attribute %q", e.Side, e.ID, e.Attr)
}
