// Notisync - Bidirectional Notion Synchronization Engine
// Copyright 2026 Notisync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/notisync/notisync

/*
Package sync implements the bidirectional reconciliation engine.

A Task pairs two external services through per-side Adapters and keeps a set
of objects consistent across them. Each call to Task.Sync performs one pass:

  - With no prior state, objects are joined by content fingerprint and the
    resulting pairings become the initial state (two-way reconciliation).
  - With prior state, the pass runs four ordered phases: propagate deletions
    seen on the primary side, propagate deletions seen on the secondary side,
    three-way merge every surviving pairing's attributes against the stored
    baseline, then mirror newly created objects in both directions.

The phase order is load-bearing: the merge and creation phases operate on
object sets already shrunk by the deletion phases of the same pass.

"Changed" in the three-way merge means unequal to the stored baseline value;
timestamps are consulted only when both sides changed and the task's
ConflictMode is Newer. A mirror object created during a pass is read back and
verified against the exact values that were written; any divergence fails the
pass, since a silently defaulting adapter would corrupt every later merge.

The engine performs no retries and persists nothing itself. Adapter errors
abort the pass and propagate to the scheduler, which reloads the last
persisted state on the next attempt.

Adapter decorators WithBreaker and WithRateLimit add circuit breaking and
client-side rate limiting around any Adapter without touching the engine.
*/
package sync
