// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/fileshare/lib/clock"
)

// DefaultInterval is the debounce interval when Config.Interval is
// zero.
const DefaultInterval = time.Second

// SaveFunc persists the current state. localChange reports whether any
// change consumed by this save was local.
type SaveFunc func(ctx context.Context, localChange bool) error

// Config configures a Scheduler.
type Config struct {
	// Interval is the debounce interval. Zero means DefaultInterval.
	Interval time.Duration

	// Clock defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// Save is required.
	Save SaveFunc

	// Enabled gates timer-driven saves. While it returns false a due
	// save is held and the scheduler stays Pending without re-arming;
	// a later MarkChanged or Kick retries. Nil means always enabled.
	Enabled func() bool

	// OnError, if set, is called after a failed save, outside the
	// scheduler's lock.
	OnError func(error)
}

// State is the scheduler's state.
type State int

const (
	Idle State = iota
	Pending
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is a point-in-time view of a Scheduler.
type Status struct {
	State State

	// LocalPending reports an unsaved local change. While Saving it
	// covers only changes that arrived after the save started.
	LocalPending bool

	// LastError is the error from the most recent save, nil after a
	// success.
	LastError error

	// Saves counts successful saves.
	Saves int
}

// Scheduler is safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	save     SaveFunc
	enabled  func() bool
	onError  func(error)

	mu      sync.Mutex
	pending bool
	local   bool
	saving  bool
	flushed bool

	// timer is the armed debounce timer, nil when none is armed.
	// timerGeneration invalidates callbacks of stopped timers that
	// were already running when Stop was called.
	timer           *clock.Timer
	timerGeneration uint64

	// done is closed when the in-flight save finishes.
	done chan struct{}

	lastError error
	saves     int
}

// New creates an Idle scheduler.
func New(config Config) (*Scheduler, error) {
	if config.Save == nil {
		return nil, errors.New("schedule: Save is required")
	}
	if config.Interval < 0 {
		return nil, fmt.Errorf("schedule: negative interval %v", config.Interval)
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		interval: config.Interval,
		clock:    config.Clock,
		logger:   config.Logger,
		save:     config.Save,
		enabled:  config.Enabled,
		onError:  config.OnError,
	}, nil
}

// MarkChanged records a change. local distinguishes a change made by
// this participant from a merge of remote state. If no timer is armed,
// one is armed for one interval.
func (s *Scheduler) MarkChanged(local bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = true
	s.local = s.local || local
	if !s.flushed {
		s.armLocked()
	}
}

// Kick starts a pending save now instead of at the armed deadline. If
// a save is running, the pending save is deferred by one interval. Kick
// does nothing when there is no pending change.
func (s *Scheduler) Kick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending || s.flushed {
		return
	}
	if !s.saving {
		s.disarmLocked()
	}
	s.startLocked()
}

// Flush cancels the armed timer, waits for an in-flight save, and then
// runs one final save if anything is pending. The final save runs on
// the caller's goroutine and ignores Config.Enabled. After Flush the
// scheduler arms no more timers; later changes are recorded but never
// saved.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.flushed = true
	s.disarmLocked()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for in-flight save: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	if !s.pending || s.saving {
		s.mu.Unlock()
		return nil
	}
	local := s.local
	s.pending, s.local, s.saving = false, false, true
	s.mu.Unlock()

	s.logger.Debug("final save", "local_change", local)
	err := s.save(ctx, local)

	s.mu.Lock()
	s.saving = false
	s.recordResultLocked(local, err)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	return nil
}

// Status returns the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := Idle
	switch {
	case s.saving:
		state = Saving
	case s.pending:
		state = Pending
	}
	return Status{
		State:        state,
		LocalPending: s.local,
		LastError:    s.lastError,
		Saves:        s.saves,
	}
}

// armLocked arms the debounce timer unless one is already armed.
func (s *Scheduler) armLocked() {
	if s.timer != nil {
		return
	}
	s.timerGeneration++
	generation := s.timerGeneration
	s.timer = s.clock.AfterFunc(s.interval, func() { s.fire(generation) })
}

func (s *Scheduler) disarmLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.timerGeneration++
}

func (s *Scheduler) fire(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.timerGeneration || s.timer == nil {
		return
	}
	s.timer = nil
	s.startLocked()
}

// startLocked begins a save if one is due and allowed. Must be called
// with s.mu held and no timer armed (unless a save is running).
func (s *Scheduler) startLocked() {
	if !s.pending || s.flushed {
		return
	}
	if s.saving {
		s.armLocked()
		return
	}
	if s.enabled != nil && !s.enabled() {
		s.logger.Debug("save held while disabled", "local_change", s.local)
		return
	}

	local := s.local
	s.pending, s.local, s.saving = false, false, true
	done := make(chan struct{})
	s.done = done
	go s.run(local, done)
}

func (s *Scheduler) run(local bool, done chan struct{}) {
	err := s.save(context.Background(), local)

	s.mu.Lock()
	s.saving = false
	s.done = nil
	s.recordResultLocked(local, err)
	if err != nil && !s.flushed {
		s.armLocked()
	}
	onError := s.onError
	s.mu.Unlock()
	close(done)

	if err != nil {
		s.logger.Error("save failed, will retry", "local_change", local, "error", err)
		if onError != nil {
			onError(err)
		}
	}
}

// recordResultLocked restores the consumed flags after a failure so
// the change is not lost.
func (s *Scheduler) recordResultLocked(local bool, err error) {
	if err != nil {
		s.pending = true
		s.local = s.local || local
		s.lastError = err
		return
	}
	s.lastError = nil
	s.saves++
}
