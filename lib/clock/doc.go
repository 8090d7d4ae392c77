// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for fileshare's debounce and settle
// logic. The save scheduler arms its debounce timer through a Clock and
// the watcher measures how long a file's size has been stable through
// one, so both can be driven deterministically in tests.
//
// Production code passes Real(). Tests pass Fake(t0) and move time with
// Advance, using WaitForTimers to wait until the code under test has
// armed the timer it is expected to arm:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	scheduler := schedule.New(schedule.Config{Clock: c, ...})
//	scheduler.MarkChanged(true)
//	c.WaitForTimers(1)
//	c.Advance(time.Second) // the debounce timer fires here
package clock
