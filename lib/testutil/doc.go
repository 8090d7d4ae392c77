// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for fileshare packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for channels. [Eventually] polls a condition that depends on
// the filesystem or on another goroutine, such as a watcher noticing a
// file written by a second session. These are the only places in the
// test suite that wait on the wall clock.
//
// [UniqueID] returns distinct participant names for tests that run
// several sessions against one folder.
//
// All helpers fail the test with t.Fatalf rather than returning errors.
package testutil
