// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule debounces and serializes saves for one session.
//
// A [Scheduler] moves between three states:
//
//   - Idle: nothing to save.
//   - Pending: a change is recorded and a single timer is armed.
//     Further changes do not re-arm it, so a steady stream of changes
//     still produces a save every interval.
//   - Saving: one save is running. Changes that arrive meanwhile make
//     the scheduler Pending again and are picked up by the next save.
//
// The scheduler also remembers whether any change since the last save
// was local. That flag decides whether the save publishes (writes the
// primary file) or only refreshes the shadow file.
//
// No two saves ever overlap. A failed save restores the flags it
// consumed and retries after one interval.
package schedule
