// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

// Package state holds the persisted reconciliation state of a sync task and
// the stores that durably keep it between passes.
//
// A SyncState is the single unit of persistence: the set of all object
// pairings a task has established, each with the attribute values as they
// were after the last completed pass. The reconciliation engine owns and
// mutates SyncState during a pass; stores only move its byte representation
// to and from durable storage and know nothing about its structure beyond
// the JSON codec.
package state

import "maps"

// ObjectState records one logically-paired object across both sides.
//
// Keeping the identity pairing and the attribute snapshot in one struct
// guarantees they are always created and dropped together; the two can
// never drift apart the way separate id and attribute maps could.
type ObjectState struct {
	// PrimaryID is the object's identity on the primary side.
	PrimaryID string `json:"primary_id"`

	// OtherID is the paired object's identity on the secondary side.
	OtherID string `json:"other_id"`

	// Attributes maps canonical attribute names (primary-side naming) to
	// the last reconciled value for that attribute.
	Attributes map[string]any `json:"attributes"`
}

// SyncState is the aggregate persisted unit for one sync task: every
// pairing the task currently knows about, keyed by primary-side identity.
type SyncState struct {
	Objects map[string]*ObjectState `json:"objects"`
}

// New returns an empty SyncState.
func New() *SyncState {
	return &SyncState{Objects: make(map[string]*ObjectState)}
}

// Pair records a pairing with its reconciled attribute values.
// An existing entry for the same primary ID is replaced.
func (s *SyncState) Pair(primaryID, otherID string, attrs map[string]any) {
	if s.Objects == nil {
		s.Objects = make(map[string]*ObjectState)
	}
	s.Objects[primaryID] = &ObjectState{
		PrimaryID:  primaryID,
		OtherID:    otherID,
		Attributes: attrs,
	}
}

// Unpair drops the entry for the given primary ID, if present.
func (s *SyncState) Unpair(primaryID string) {
	delete(s.Objects, primaryID)
}

// Get returns the entry for the given primary ID.
func (s *SyncState) Get(primaryID string) (*ObjectState, bool) {
	obj, ok := s.Objects[primaryID]
	return obj, ok
}

// ByOtherID returns the entry paired with the given secondary-side ID.
// Linear scan; state sizes are bounded by the number of synced objects.
func (s *SyncState) ByOtherID(otherID string) (*ObjectState, bool) {
	for _, obj := range s.Objects {
		if obj.OtherID == otherID {
			return obj, true
		}
	}
	return nil, false
}

// HasOther reports whether any entry is paired with the given secondary ID.
func (s *SyncState) HasOther(otherID string) bool {
	_, ok := s.ByOtherID(otherID)
	return ok
}

// Len returns the number of pairings.
func (s *SyncState) Len() int {
	return len(s.Objects)
}

// Clone returns a deep copy of the state. The engine clones the loaded
// state before a pass so a failed pass leaves the caller's copy untouched.
func (s *SyncState) Clone() *SyncState {
	if s == nil {
		return nil
	}
	out := New()
	for id, obj := range s.Objects {
		out.Objects[id] = &ObjectState{
			PrimaryID:  obj.PrimaryID,
			OtherID:    obj.OtherID,
			Attributes: maps.Clone(obj.Attributes),
		}
	}
	return out
}
