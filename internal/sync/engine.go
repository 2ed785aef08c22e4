// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

package sync

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/goccy/go-json"

	"github.com/notisync/notisync/internal/logging"
	"github.com/notisync/notisync/internal/metrics"
	"github.com/notisync/notisync/internal/state"
)

// Side labels used in logs, metrics and errors.
const (
	sidePrimary = "primary"
	sideOther   = "other"
)

// Sync performs one reconciliation pass and returns the post-pass state.
//
// A nil prev requests the initial, fingerprint-joined reconciliation. With
// prior state the pass runs the four ordered phases described in the
// package documentation. The input state is cloned before mutation, so on
// error the caller's copy still reflects the last completed pass.
//
// Sync itself performs no persistence and no retries: any adapter error,
// conflict under ConflictMode Fail, or post-create verification mismatch
// aborts the pass and propagates.
func (t *Task) Sync(ctx context.Context, prev *state.SyncState) (*state.SyncState, error) {
	primaryObjs, err := t.fetch(ctx, t.primary, sidePrimary)
	if err != nil {
		return nil, err
	}
	otherObjs, err := t.fetch(ctx, t.other, sideOther)
	if err != nil {
		return nil, err
	}

	var st *state.SyncState
	if prev == nil {
		st, err = t.initialSync(ctx, primaryObjs, otherObjs)
		if err != nil {
			return nil, err
		}
	} else {
		st = prev.Clone()
		if err := t.syncPrimaryDeleted(ctx, st, primaryObjs, otherObjs); err != nil {
			return nil, err
		}
		if err := t.syncOtherDeleted(ctx, st, primaryObjs, otherObjs); err != nil {
			return nil, err
		}
		if err := t.syncChanged(ctx, st, primaryObjs, otherObjs); err != nil {
			return nil, err
		}
	}

	if err := t.syncPrimaryCreated(ctx, st, primaryObjs); err != nil {
		return nil, err
	}
	if err := t.syncOtherCreated(ctx, st, otherObjs); err != nil {
		return nil, err
	}

	metrics.PairedObjects.WithLabelValues(t.name).Set(float64(st.Len()))
	return st, nil
}

// fetch lists one side and indexes the result by identity.
func (t *Task) fetch(ctx context.Context, a Adapter, side string) (map[string]Object, error) {
	objs, err := a.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s objects: %w", side, err)
	}

	byID := make(map[string]Object, len(objs))
	for _, obj := range objs {
		byID[a.Identity(obj)] = obj
	}

	logging.Ctx(ctx).Debug().Str("side", side).Int("count", len(byID)).Msg("Fetched objects")
	return byID, nil
}

// initialSync joins both sides by content fingerprint and reconciles the
// attributes of every matched pair. Unmatched objects carry no state entry
// and are mirrored by the creation phases of the same pass.
//
// Fingerprints are a first-contact heuristic only. If several objects on
// one side share a fingerprint, the one with the smallest identity wins
// deterministically and the rest are treated as new objects; a warning is
// logged because duplicate fingerprints usually mean duplicate titles.
func (t *Task) initialSync(ctx context.Context, primaryObjs, otherObjs map[string]Object) (*state.SyncState, error) {
	logging.Ctx(ctx).Info().
		Int("primary", len(primaryObjs)).
		Int("other", len(otherObjs)).
		Msg("No prior state, performing initial reconciliation")

	primaryByFp := fingerprintIndex(ctx, t.primary, primaryObjs, sidePrimary)
	otherByFp := fingerprintIndex(ctx, t.other, otherObjs, sideOther)

	st := state.New()
	for _, fp := range sortedKeys(primaryByFp) {
		otherID, ok := otherByFp[fp]
		if !ok {
			continue
		}
		primaryID := primaryByFp[fp]
		primaryObj, otherObj := primaryObjs[primaryID], otherObjs[otherID]

		primaryAttrs, err := t.project(t.primary, primaryObj, sidePrimary)
		if err != nil {
			return nil, err
		}
		otherAttrs, err := t.project(t.other, otherObj, sideOther)
		if err != nil {
			return nil, err
		}

		reconciled := make(map[string]any, len(t.attrs))
		for _, primaryAttr := range sortedKeys(t.attrs) {
			otherAttr := t.attrs[primaryAttr]
			pv, ov := primaryAttrs[primaryAttr], otherAttrs[otherAttr]

			if valuesEqual(pv, ov) {
				reconciled[primaryAttr] = pv
				continue
			}
			resolved, err := t.resolveConflict(ctx, primaryObj, otherObj, primaryAttr, otherAttr, pv, ov)
			if err != nil {
				return nil, err
			}
			reconciled[primaryAttr] = resolved
		}

		st.Pair(primaryID, otherID, reconciled)
		logging.Ctx(ctx).Debug().
			Str("primary_id", primaryID).
			Str("other_id", otherID).
			Str("fingerprint", fp).
			Msg("Paired by fingerprint")
	}

	return st, nil
}

// fingerprintIndex maps fingerprint -> identity, keeping the smallest
// identity on collision.
func fingerprintIndex(ctx context.Context, a Adapter, objs map[string]Object, side string) map[string]string {
	byFp := make(map[string]string, len(objs))
	for _, id := range sortedKeys(objs) {
		fp := a.Fingerprint(objs[id])
		if prev, dup := byFp[fp]; dup {
			logging.Ctx(ctx).Warn().
				Str("side", side).
				Str("fingerprint", fp).
				Str("kept", prev).
				Str("skipped", id).
				Msg("Duplicate fingerprint, object will be mirrored as new")
			continue
		}
		byFp[fp] = id
	}
	return byFp
}

// syncPrimaryDeleted propagates primary-side deletions: every pairing whose
// primary object vanished has its mirror deleted and its entry dropped. A
// mirror already gone on the secondary side is tolerated; the entry is
// dropped either way.
func (t *Task) syncPrimaryDeleted(ctx context.Context, st *state.SyncState, primaryObjs, otherObjs map[string]Object) error {
	for _, primaryID := range sortedKeys(st.Objects) {
		entry := st.Objects[primaryID]
		if _, alive := primaryObjs[primaryID]; alive {
			continue
		}

		if otherObj, alive := otherObjs[entry.OtherID]; alive {
			if err := t.other.Delete(ctx, otherObj); err != nil {
				return fmt.Errorf("delete other object %s: %w", entry.OtherID, err)
			}
			delete(otherObjs, entry.OtherID)
			metrics.ObjectsDeleted.WithLabelValues(t.name, sideOther).Inc()
			logging.Ctx(ctx).Info().
				Str("primary_id", primaryID).
				Str("other_id", entry.OtherID).
				Msg("Deleted mirror of removed primary object")
		}
		st.Unpair(primaryID)
	}
	return nil
}

// syncOtherDeleted is the symmetric phase for secondary-side deletions.
func (t *Task) syncOtherDeleted(ctx context.Context, st *state.SyncState, primaryObjs, otherObjs map[string]Object) error {
	for _, primaryID := range sortedKeys(st.Objects) {
		entry := st.Objects[primaryID]
		if _, alive := otherObjs[entry.OtherID]; alive {
			continue
		}

		if primaryObj, alive := primaryObjs[primaryID]; alive {
			if err := t.primary.Delete(ctx, primaryObj); err != nil {
				return fmt.Errorf("delete primary object %s: %w", primaryID, err)
			}
			delete(primaryObjs, primaryID)
			metrics.ObjectsDeleted.WithLabelValues(t.name, sidePrimary).Inc()
			logging.Ctx(ctx).Info().
				Str("primary_id", primaryID).
				Str("other_id", entry.OtherID).
				Msg("Deleted mirror of removed secondary object")
		}
		st.Unpair(primaryID)
	}
	return nil
}

// syncChanged runs the three-way merge over every surviving pairing.
// "Changed" means unequal to the stored baseline; timestamps are never
// consulted here, only inside newer-wins conflict resolution.
func (t *Task) syncChanged(ctx context.Context, st *state.SyncState, primaryObjs, otherObjs map[string]Object) error {
	for _, primaryID := range sortedKeys(st.Objects) {
		entry := st.Objects[primaryID]
		primaryObj, otherObj := primaryObjs[primaryID], otherObjs[entry.OtherID]

		primaryAttrs, err := t.project(t.primary, primaryObj, sidePrimary)
		if err != nil {
			return err
		}
		otherAttrs, err := t.project(t.other, otherObj, sideOther)
		if err != nil {
			return err
		}

		for _, primaryAttr := range sortedKeys(t.attrs) {
			otherAttr := t.attrs[primaryAttr]
			pv, ov := primaryAttrs[primaryAttr], otherAttrs[otherAttr]
			base := entry.Attributes[primaryAttr]

			primaryChanged := !valuesEqual(pv, base)
			otherChanged := !valuesEqual(ov, base)

			switch {
			case primaryChanged && !otherChanged:
				if err := t.other.SetAttribute(ctx, otherObj, otherAttr, pv); err != nil {
					return fmt.Errorf("set %s on other object %s: %w", otherAttr, entry.OtherID, err)
				}
				entry.Attributes[primaryAttr] = pv
				metrics.AttributesUpdated.WithLabelValues(t.name, sideOther).Inc()

			case !primaryChanged && otherChanged:
				if err := t.primary.SetAttribute(ctx, primaryObj, primaryAttr, ov); err != nil {
					return fmt.Errorf("set %s on primary object %s: %w", primaryAttr, primaryID, err)
				}
				entry.Attributes[primaryAttr] = ov
				metrics.AttributesUpdated.WithLabelValues(t.name, sidePrimary).Inc()

			case primaryChanged && otherChanged && !valuesEqual(pv, ov):
				resolved, err := t.resolveConflict(ctx, primaryObj, otherObj, primaryAttr, otherAttr, pv, ov)
				if err != nil {
					return err
				}
				entry.Attributes[primaryAttr] = resolved

			case primaryChanged && otherChanged:
				// Both sides converged on the same new value; nothing to
				// push, just adopt it as the new baseline.
				entry.Attributes[primaryAttr] = pv
			}
		}
	}
	return nil
}

// resolveConflict applies the task's ConflictMode to an attribute changed
// on both sides, pushes the winning value to the losing side and returns
// the value recorded as the new baseline.
func (t *Task) resolveConflict(ctx context.Context, primaryObj, otherObj Object, primaryAttr, otherAttr string, pv, ov any) (any, error) {
	primaryID, otherID := t.primary.Identity(primaryObj), t.other.Identity(otherObj)

	primaryWins := false
	switch t.mode {
	case PreferPrimary:
		primaryWins = true
	case PreferOther:
		primaryWins = false
	case Newer:
		primaryWins = t.primary.ModifiedAt(primaryObj).After(t.other.ModifiedAt(otherObj))
	case Fail:
		return nil, &ConflictError{
			Task:      t.name,
			PrimaryID: primaryID,
			OtherID:   otherID,
			Attr:      primaryAttr,
			Primary:   pv,
			Other:     ov,
		}
	}

	if primaryWins {
		if err := t.other.SetAttribute(ctx, otherObj, otherAttr, pv); err != nil {
			return nil, fmt.Errorf("resolve conflict on %s: %w", otherAttr, err)
		}
		metrics.ConflictsResolved.WithLabelValues(t.name, sidePrimary).Inc()
		logging.Ctx(ctx).Debug().
			Str("attr", primaryAttr).
			Str("winner", sidePrimary).
			Str("mode", t.mode.String()).
			Msg("Resolved conflict")
		return pv, nil
	}

	if err := t.primary.SetAttribute(ctx, primaryObj, primaryAttr, ov); err != nil {
		return nil, fmt.Errorf("resolve conflict on %s: %w", primaryAttr, err)
	}
	metrics.ConflictsResolved.WithLabelValues(t.name, sideOther).Inc()
	logging.Ctx(ctx).Debug().
		Str("attr", primaryAttr).
		Str("winner", sideOther).
		Str("mode", t.mode.String()).
		Msg("Resolved conflict")
	return ov, nil
}

// syncPrimaryCreated mirrors primary objects with no state entry onto the
// secondary side.
func (t *Task) syncPrimaryCreated(ctx context.Context, st *state.SyncState, primaryObjs map[string]Object) error {
	for _, primaryID := range sortedKeys(primaryObjs) {
		if _, paired := st.Get(primaryID); paired {
			continue
		}

		primaryAttrs, err := t.project(t.primary, primaryObjs[primaryID], sidePrimary)
		if err != nil {
			return err
		}

		// Translate to the secondary side's naming for creation, keeping
		// the canonical (primary-named) values for the state entry.
		want := make(map[string]any, len(t.attrs))
		reconciled := make(map[string]any, len(t.attrs))
		for primaryAttr, otherAttr := range t.attrs {
			v := primaryAttrs[primaryAttr]
			want[otherAttr] = v
			reconciled[primaryAttr] = v
		}

		created, err := t.other.Create(ctx, want)
		if err != nil {
			return fmt.Errorf("create other object for primary %s: %w", primaryID, err)
		}
		if err := t.verifyCreated(t.other, created, want, sideOther); err != nil {
			return err
		}

		otherID := t.other.Identity(created)
		st.Pair(primaryID, otherID, reconciled)
		metrics.ObjectsCreated.WithLabelValues(t.name, sideOther).Inc()
		logging.Ctx(ctx).Info().
			Str("primary_id", primaryID).
			Str("other_id", otherID).
			Msg("Mirrored new primary object")
	}
	return nil
}

// syncOtherCreated mirrors secondary objects with no state entry onto the
// primary side.
func (t *Task) syncOtherCreated(ctx context.Context, st *state.SyncState, otherObjs map[string]Object) error {
	for _, otherID := range sortedKeys(otherObjs) {
		if st.HasOther(otherID) {
			continue
		}

		otherAttrs, err := t.project(t.other, otherObjs[otherID], sideOther)
		if err != nil {
			return err
		}

		want := make(map[string]any, len(t.attrs))
		for primaryAttr, otherAttr := range t.attrs {
			want[primaryAttr] = otherAttrs[otherAttr]
		}

		created, err := t.primary.Create(ctx, want)
		if err != nil {
			return fmt.Errorf("create primary object for other %s: %w", otherID, err)
		}
		if err := t.verifyCreated(t.primary, created, want, sidePrimary); err != nil {
			return err
		}

		primaryID := t.primary.Identity(created)
		st.Pair(primaryID, otherID, want)
		metrics.ObjectsCreated.WithLabelValues(t.name, sidePrimary).Inc()
		logging.Ctx(ctx).Info().
			Str("primary_id", primaryID).
			Str("other_id", otherID).
			Msg("Mirrored new secondary object")
	}
	return nil
}

// verifyCreated re-projects a freshly created object and compares every
// written attribute against the value that was intended. Divergence is
// fatal for the pass.
func (t *Task) verifyCreated(a Adapter, created Object, want map[string]any, side string) error {
	got, err := a.Attributes(created)
	if err != nil {
		return fmt.Errorf("verify created %s object: %w", side, err)
	}
	for _, attr := range sortedKeys(want) {
		if !valuesEqual(got[attr], want[attr]) {
			return &VerificationError{
				Task: t.name,
				Side: side,
				Attr: attr,
				Want: want[attr],
				Got:  got[attr],
			}
		}
	}
	return nil
}

// project fetches an object's attribute dictionary and checks that every
// canonical attribute the task maps is present.
func (t *Task) project(a Adapter, obj Object, side string) (map[string]any, error) {
	attrs, err := a.Attributes(obj)
	if err != nil {
		return nil, fmt.Errorf("project %s object %s: %w", side, a.Identity(obj), err)
	}

	for primaryAttr, otherAttr := range t.attrs {
		name := primaryAttr
		if side == sideOther {
			name = otherAttr
		}
		if _, ok := attrs[name]; !ok {
			return nil, &MissingAttrError{Side: side, ID: a.Identity(obj), Attr: name}
		}
	}
	return attrs, nil
}

// valuesEqual compares two canonical attribute values. Values that have
// round-tripped through the state store come back as their JSON shapes
// (float64 numbers, []any slices), so a plain DeepEqual would report
// spurious changes; unequal values are therefore re-compared through the
// JSON codec.
func valuesEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}

// sortedKeys returns the map's keys in ascending order. Reconciliation
// iterates in sorted order so passes are deterministic and testable.
func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
