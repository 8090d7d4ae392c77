// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package folder knows the shared folder's layout and reads the records
// in it.
//
// Each participant owns exactly two files, described by a [Layout]:
//
//   - the primary file "<participant>[-<window>].json", which the sync
//     client propagates to collaborators, and
//   - the shadow file ".~latest[-<window>].json", whose leading ".~"
//     tells common sync clients to leave it alone. It holds the
//     participant's newest state even when that state has not been
//     published yet.
//
// Every other file in the folder is read-only input. [Scan] reads all
// of them (owned files included, since merging one's own state is
// harmless) and silently skips anything that is not a valid record.
package folder
