// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/fileshare/lib/clock"
	"github.com/bureau-foundation/fileshare/lib/testutil"
)

const interval = time.Second

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// recorder is a SaveFunc that reports each call's localChange flag.
type recorder struct {
	calls chan bool
	err   atomic.Pointer[error]
}

func newRecorder() *recorder {
	return &recorder{calls: make(chan bool, 64)}
}

func (r *recorder) save(ctx context.Context, local bool) error {
	r.calls <- local
	if errPointer := r.err.Load(); errPointer != nil {
		return *errPointer
	}
	return nil
}

func (r *recorder) failWith(err error) {
	if err == nil {
		r.err.Store(nil)
		return
	}
	r.err.Store(&err)
}

func newTestScheduler(t *testing.T, save SaveFunc, enabled func() bool) (*Scheduler, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	scheduler, err := New(Config{
		Interval: interval,
		Clock:    fake,
		Save:     save,
		Enabled:  enabled,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return scheduler, fake
}

func waitForState(t *testing.T, scheduler *Scheduler, want State) {
	t.Helper()
	testutil.Eventually(t, 5*time.Second, func() bool {
		return scheduler.Status().State == want
	}, "waiting for scheduler state %s", want)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without Save succeeded")
	}
	save := func(context.Context, bool) error { return nil }
	if _, err := New(Config{Save: save, Interval: -time.Second}); err == nil {
		t.Error("New with negative interval succeeded")
	}
}

func TestCoalescesChangesWithinInterval(t *testing.T) {
	saves := newRecorder()
	scheduler, fake := newTestScheduler(t, saves.save, nil)

	for i := range 10 {
		scheduler.MarkChanged(i%3 == 0)
	}
	if got := scheduler.Status().State; got != Pending {
		t.Fatalf("state after changes = %s, want pending", got)
	}
	if got := fake.PendingCount(); got != 1 {
		t.Fatalf("armed timers = %d, want 1", got)
	}

	fake.Advance(interval)
	local := testutil.RequireReceive(t, saves.calls, 5*time.Second, "waiting for the coalesced save")
	if !local {
		t.Error("coalesced save lost the local flag")
	}
	waitForState(t, scheduler, Idle)

	testutil.RequireNoReceive(t, saves.calls, 50*time.Millisecond, "second save after one interval")
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("armed timers after save = %d, want 0", got)
	}
	if got := scheduler.Status().Saves; got != 1 {
		t.Errorf("Saves = %d, want 1", got)
	}
}

func TestDebounceIsNotResetByLaterChanges(t *testing.T) {
	saves := newRecorder()
	scheduler, fake := newTestScheduler(t, saves.save, nil)

	scheduler.MarkChanged(true)
	fake.Advance(interval / 2)
	scheduler.MarkChanged(true)
	fake.Advance(interval / 2)

	testutil.RequireReceive(t, saves.calls, 5*time.Second, "a save one interval after the first change")
}

func TestRemoteOnlyChangesAreNotLocal(t *testing.T) {
	saves := newRecorder()
	scheduler, fake := newTestScheduler(t, saves.save, nil)

	scheduler.MarkChanged(false)
	scheduler.MarkChanged(false)
	fake.Advance(interval)

	if local := testutil.RequireReceive(t, saves.calls, 5*time.Second, "waiting for save"); local {
		t.Error("remote-only save reported a local change")
	}
}

func TestSingleFlightUnderBurst(t *testing.T) {
	var inFlight, maxInFlight, total atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 64)
	save := func(ctx context.Context, local bool) error {
		current := inFlight.Add(1)
		for {
			previous := maxInFlight.Load()
			if current <= previous || maxInFlight.CompareAndSwap(previous, current) {
				break
			}
		}
		started <- struct{}{}
		<-release
		inFlight.Add(-1)
		total.Add(1)
		return nil
	}
	scheduler, fake := newTestScheduler(t, save, nil)

	scheduler.MarkChanged(true)
	fake.Advance(interval)
	testutil.RequireReceive(t, started, 5*time.Second, "waiting for first save")

	// A burst of concurrent changes and kicks while the first save runs.
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.MarkChanged(true)
			scheduler.Kick()
		}()
	}
	wg.Wait()

	// The timer fires while the save still runs: deferred, not started.
	fake.Advance(interval)
	testutil.RequireNoReceive(t, started, 50*time.Millisecond, "second save while the first is running")
	if got := scheduler.Status().State; got != Saving {
		t.Fatalf("state = %s, want saving", got)
	}
	if !scheduler.Status().LocalPending {
		t.Error("changes during the save were not recorded")
	}

	close(release)
	waitForState(t, scheduler, Pending)

	fake.Advance(interval)
	testutil.RequireReceive(t, started, 5*time.Second, "waiting for the follow-up save")
	waitForState(t, scheduler, Idle)

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent saves = %d, want 1", got)
	}
	if got := total.Load(); got != 2 {
		t.Errorf("total saves = %d, want 2", got)
	}
}

func TestFailedSaveRestoresFlagsAndRetries(t *testing.T) {
	saves := newRecorder()
	var reported atomic.Int32
	fake := clock.Fake(epoch)
	scheduler, err := New(Config{
		Interval: interval,
		Clock:    fake,
		Save:     saves.save,
		OnError:  func(error) { reported.Add(1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	diskFull := errors.New("disk full")
	saves.failWith(diskFull)
	scheduler.MarkChanged(true)
	fake.Advance(interval)
	testutil.RequireReceive(t, saves.calls, 5*time.Second, "waiting for failing save")
	waitForState(t, scheduler, Pending)

	status := scheduler.Status()
	if !errors.Is(status.LastError, diskFull) {
		t.Errorf("LastError = %v, want %v", status.LastError, diskFull)
	}
	if !status.LocalPending {
		t.Error("local flag not restored after failure")
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return reported.Load() == 1 }, "OnError not called")
	fake.WaitForTimers(1)

	saves.failWith(nil)
	fake.Advance(interval)
	if local := testutil.RequireReceive(t, saves.calls, 5*time.Second, "waiting for retry"); !local {
		t.Error("retry lost the local flag")
	}
	waitForState(t, scheduler, Idle)
	if err := scheduler.Status().LastError; err != nil {
		t.Errorf("LastError after successful retry = %v", err)
	}
}

func TestDisabledHoldsSaves(t *testing.T) {
	saves := newRecorder()
	var enabled atomic.Bool
	scheduler, fake := newTestScheduler(t, saves.save, enabled.Load)

	scheduler.MarkChanged(true)
	fake.Advance(interval)
	testutil.RequireNoReceive(t, saves.calls, 50*time.Millisecond, "save while disabled")
	if got := scheduler.Status().State; got != Pending {
		t.Fatalf("state = %s, want pending", got)
	}
	if got := fake.PendingCount(); got != 0 {
		t.Fatalf("armed timers while disabled = %d, want 0", got)
	}

	enabled.Store(true)
	scheduler.MarkChanged(false)
	scheduler.Kick()
	if local := testutil.RequireReceive(t, saves.calls, 5*time.Second, "waiting for save after enabling"); !local {
		t.Error("held local change lost")
	}
	waitForState(t, scheduler, Idle)
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("armed timers after kicked save = %d, want 0", got)
	}
}

func TestKickWithoutChangesDoesNothing(t *testing.T) {
	saves := newRecorder()
	scheduler, _ := newTestScheduler(t, saves.save, nil)
	scheduler.Kick()
	testutil.RequireNoReceive(t, saves.calls, 50*time.Millisecond, "save without changes")
}

func TestFlushSavesPendingChange(t *testing.T) {
	saves := newRecorder()
	scheduler, fake := newTestScheduler(t, saves.save, func() bool { return false })

	scheduler.MarkChanged(true)
	if err := scheduler.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if local := testutil.RequireReceive(t, saves.calls, time.Second, "final save"); !local {
		t.Error("final save lost the local flag")
	}
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("armed timers after Flush = %d, want 0", got)
	}

	// Flushed schedulers never arm again.
	scheduler.MarkChanged(true)
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("armed timers after a post-Flush change = %d, want 0", got)
	}
}

func TestFlushWaitsForInFlightSave(t *testing.T) {
	release := make(chan struct{})
	started := make(chan bool, 4)
	var calls atomic.Int32
	save := func(ctx context.Context, local bool) error {
		started <- local
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	}
	scheduler, fake := newTestScheduler(t, save, nil)

	scheduler.MarkChanged(false)
	fake.Advance(interval)
	testutil.RequireReceive(t, started, 5*time.Second, "waiting for first save")
	scheduler.MarkChanged(true)

	flushed := make(chan error, 1)
	go func() { flushed <- scheduler.Flush(context.Background()) }()
	testutil.RequireNoReceive(t, flushed, 50*time.Millisecond, "Flush returned during an in-flight save")

	close(release)
	if err := testutil.RequireReceive(t, flushed, 5*time.Second, "waiting for Flush"); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if local := testutil.RequireReceive(t, started, time.Second, "final save"); !local {
		t.Error("final save lost the local flag")
	}
	if got := scheduler.Status().Saves; got != 2 {
		t.Errorf("Saves = %d, want 2", got)
	}
}

func TestFlushWithNothingPending(t *testing.T) {
	saves := newRecorder()
	scheduler, _ := newTestScheduler(t, saves.save, nil)
	if err := scheduler.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	testutil.RequireNoReceive(t, saves.calls, 50*time.Millisecond, "save on an idle Flush")
}

func TestFlushReportsFinalSaveError(t *testing.T) {
	saves := newRecorder()
	saves.failWith(errors.New("read-only file system"))
	scheduler, fake := newTestScheduler(t, saves.save, nil)

	scheduler.MarkChanged(true)
	if err := scheduler.Flush(context.Background()); err == nil {
		t.Fatal("Flush succeeded with a failing save")
	}
	if got := fake.PendingCount(); got != 0 {
		t.Errorf("failed final save armed a retry timer")
	}
}
