// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instancelock keeps a second process from opening a session
// for the same participant and window on one machine. Two such
// processes would write the same owned files.
//
// The lock is a non-blocking flock(2) on a file in the state directory,
// so it is released automatically if the process dies.
package instancelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrLocked means another live process holds the lock.
var ErrLocked = errors.New("another instance is already running")

// Lock is a held instance lock.
type Lock struct {
	file *os.File
}

// Acquire takes the lock for name in dir, creating dir if needed.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := filepath.Join(dir, name+".lock")

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// The PID is informational, for a human wondering who holds it.
	if err := file.Truncate(0); err == nil {
		file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{file: file}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}
