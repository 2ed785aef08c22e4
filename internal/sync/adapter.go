// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"context"
	"fmt"
	"time"
)

// Object is an opaque handle to one remote object. Only the Adapter that
// produced an Object may interpret it; the engine moves Objects around but
// never looks inside.
type Object = any

// Adapter exposes one side of a sync pairing to the engine. Implementations
// wrap a concrete service client (Notion databases, Google Tasks lists, a
// local store) and are supplied by the caller; the engine is transport-
// agnostic.
//
// List and mutator methods take a context and may block on network I/O.
// Accessor methods (Identity, ModifiedAt, Fingerprint, Attributes) must
// operate on already-fetched data and not perform I/O.
type Adapter interface {
	// ListObjects enumerates every sync-candidate object on this side.
	ListObjects(ctx context.Context) ([]Object, error)

	// Identity returns the object's stable, side-local identifier.
	Identity(obj Object) string

	// ModifiedAt returns the object's last-modified time. It is consulted
	// only by newer-wins conflict resolution.
	ModifiedAt(obj Object) time.Time

	// Fingerprint returns a content-derived join key (typically a title
	// hash). It is consulted only during the initial, state-less pass to
	// find objects that represent the same real-world thing.
	Fingerprint(obj Object) string

	// Attributes projects the object to the canonical attributes this
	// task cares about, using this side's attribute naming.
	Attributes(obj Object) (map[string]any, error)

	// SetAttribute writes one attribute value to the remote object.
	SetAttribute(ctx context.Context, obj Object, attr string, value any) error

	// Delete removes the remote object.
	Delete(ctx context.Context, obj Object) error

	// Create constructs a new remote object from attribute values (this
	// side's naming) and returns it.
	Create(ctx context.Context, attrs map[string]any) (Object, error)
}

// AttrMap declares which attributes a task synchronizes: each key is a
// canonical attribute in the primary side's naming, each value the
// corresponding attribute name on the secondary side. The map is fixed at
// task construction.
type AttrMap map[string]string

// Validate rejects empty or degenerate attribute mappings.
func (m AttrMap) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("sync: attribute map must not be empty")
	}
	seen := make(map[string]string, len(m))
	for primary, other := range m {
		if primary == "" || other == "" {
			return fmt.Errorf("sync: attribute map contains empty name (%q -> %q)", primary, other)
		}
		if prev, dup := seen[other]; dup {
			return fmt.Errorf("sync: attributes %q and %q both map to %q", prev, primary, other)
		}
		seen[other] = primary
	}
	return nil
}
