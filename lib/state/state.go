// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package state defines the replicated state a session persists, and
// provides two implementations: a grow-only set and an automerge
// document.
package state

// State is an opaque replicated value. Sessions only ever call its
// methods from one goroutine at a time.
type State interface {
	// Merge folds a blob produced by Save (on any participant) into
	// the state. Merge must be commutative, associative and
	// idempotent: collaborators see each other's files in arbitrary
	// order, repeatedly.
	Merge(blob []byte) error

	// Save returns a blob encoding the full current state.
	Save() ([]byte, error)
}
