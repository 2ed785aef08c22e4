// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

// Package synctest provides an in-memory Adapter implementation for testing
// the reconciliation engine and scheduler without remote services.
package synctest

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// MemObject is one object held by a MemAdapter.
type MemObject struct {
	ID       string
	Modified time.Time
	Attrs    map[string]any
}

// CallCounts records how often each I/O method of a MemAdapter was invoked.
type CallCounts struct {
	Lists   int
	Sets    int
	Deletes int
	Creates int
}

// MemAdapter is a fully in-memory sync.Adapter. Objects are keyed by ID,
// fingerprints are derived from a configurable attribute, and every I/O
// method can be made to fail for error-path tests.
//
// All methods are safe for concurrent use.
type MemAdapter struct {
	mu      sync.Mutex
	objects map[string]*MemObject
	nextID  int

	// Prefix is prepended to generated IDs ("n" yields n1, n2, ...).
	Prefix string

	// FingerprintAttr names the attribute whose value serves as the
	// content fingerprint. Default "title".
	FingerprintAttr string

	// Calls counts I/O method invocations, including failed ones.
	Calls CallCounts

	// FailList, FailSet, FailDelete and FailCreate, when non-nil, are
	// returned by the corresponding method instead of performing it.
	FailList   error
	FailSet    error
	FailDelete error
	FailCreate error

	// MutateOnCreate, when non-nil, is applied to the attribute map of
	// every created object after it is stored. Use it to simulate a remote
	// side that silently alters written values.
	MutateOnCreate func(attrs map[string]any)
}

// NewMemAdapter returns an empty adapter generating IDs with the given
// prefix and fingerprinting on the "title" attribute.
func NewMemAdapter(prefix string) *MemAdapter {
	return &MemAdapter{
		objects:         make(map[string]*MemObject),
		Prefix:          prefix,
		FingerprintAttr: "title",
	}
}

// Put inserts or replaces an object directly, bypassing Create. The
// attribute map is copied.
func (m *MemAdapter) Put(id string, modified time.Time, attrs map[string]any) *MemObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := &MemObject{ID: id, Modified: modified, Attrs: maps.Clone(attrs)}
	m.objects[id] = obj
	return obj
}

// Remove drops an object directly, simulating an out-of-band deletion.
func (m *MemAdapter) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

// Object returns the stored object with the given ID, or nil.
func (m *MemAdapter) Object(id string) *MemObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[id]
}

// Attr returns one attribute value of the stored object with the given ID.
func (m *MemAdapter) Attr(id, attr string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj := m.objects[id]
	if obj == nil {
		return nil
	}
	return obj.Attrs[attr]
}

// Len returns the number of stored objects.
func (m *MemAdapter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// IDs returns the IDs of all stored objects in arbitrary order.
func (m *MemAdapter) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.objects))
	for id := range m.objects {
		ids = append(ids, id)
	}
	return ids
}

// ResetCalls zeroes the call counters.
func (m *MemAdapter) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = CallCounts{}
}

// CallTotals returns a snapshot of the call counters.
func (m *MemAdapter) CallTotals() CallCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MutationCalls returns the number of Set, Delete and Create invocations.
func (m *MemAdapter) MutationCalls() int {
	c := m.CallTotals()
	return c.Sets + c.Deletes + c.Creates
}

func (m *MemAdapter) ListObjects(_ context.Context) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Lists++
	if m.FailList != nil {
		return nil, m.FailList
	}
	objs := make([]any, 0, len(m.objects))
	for _, obj := range m.objects {
		objs = append(objs, obj)
	}
	return objs, nil
}

func (m *MemAdapter) Identity(obj any) string {
	return obj.(*MemObject).ID
}

func (m *MemAdapter) ModifiedAt(obj any) time.Time {
	return obj.(*MemObject).Modified
}

func (m *MemAdapter) Fingerprint(obj any) string {
	return fmt.Sprintf("%v", obj.(*MemObject).Attrs[m.FingerprintAttr])
}

func (m *MemAdapter) Attributes(obj any) (map[string]any, error) {
	return maps.Clone(obj.(*MemObject).Attrs), nil
}

func (m *MemAdapter) SetAttribute(_ context.Context, obj any, attr string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Sets++
	if m.FailSet != nil {
		return m.FailSet
	}
	obj.(*MemObject).Attrs[attr] = value
	return nil
}

func (m *MemAdapter) Delete(_ context.Context, obj any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Deletes++
	if m.FailDelete != nil {
		return m.FailDelete
	}
	delete(m.objects, obj.(*MemObject).ID)
	return nil
}

func (m *MemAdapter) Create(_ context.Context, attrs map[string]any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Creates++
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}
	m.nextID++
	obj := &MemObject{
		ID:       fmt.Sprintf("%s%d", m.Prefix, m.nextID),
		Modified: time.Now(),
		Attrs:    maps.Clone(attrs),
	}
	if m.MutateOnCreate != nil {
		m.MutateOnCreate(obj.Attrs)
	}
	m.objects[obj.ID] = obj
	return obj, nil
}
