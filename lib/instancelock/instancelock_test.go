// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instancelock

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestAcquireExcludesSecondHolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	first, err := Acquire(dir, "laptop")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// flock locks belong to the open file description, so a second
	// open in the same process conflicts just like another process.
	if _, err := Acquire(dir, "laptop"); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire error = %v, want ErrLocked", err)
	}

	other, err := Acquire(dir, "laptop-2")
	if err != nil {
		t.Fatalf("Acquire for another window: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	again, err := Acquire(dir, "laptop")
	if err != nil {
		t.Fatalf("Acquire after Release: %v", err)
	}
	again.Release()
}
