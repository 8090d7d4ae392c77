// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session replicates one participant's state through a shared
// folder.
//
// A [Session] wires the pieces together for the lifetime of one open
// document:
//
//   - on Open it scans the folder and merges every valid record, then
//     saves so the merged state lands in the shadow file;
//   - a watcher reports files written by other participants, which
//     are merged (or queued while offline) and trigger a shadow-only
//     save;
//   - local changes made through Mutate or NotifyLocalChange trigger a
//     save that also publishes the primary file;
//   - Close stops watching and performs one final save.
//
// All access to the State happens on the session's loop goroutine, so
// State implementations need no locking of their own. Disk writes run
// off the loop.
package session
