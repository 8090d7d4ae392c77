// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/fileshare/lib/clock"
	"github.com/bureau-foundation/fileshare/lib/folder"
	"github.com/bureau-foundation/fileshare/lib/gate"
	"github.com/bureau-foundation/fileshare/lib/record"
	"github.com/bureau-foundation/fileshare/lib/schedule"
	"github.com/bureau-foundation/fileshare/lib/state"
	"github.com/bureau-foundation/fileshare/lib/watch"
	"github.com/bureau-foundation/fileshare/lib/writer"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Config configures a Session.
type Config struct {
	// Folder is the shared folder. Created on first save if missing.
	Folder string

	// ParticipantID names this participant's files. Must be
	// filename-safe; see lib/identity.
	ParticipantID string

	// Window distinguishes several sessions of one participant.
	Window string

	// State receives every merge. The session owns it from Open
	// until Close returns.
	State state.State

	// SaveInterval is the debounce interval (default 1s).
	SaveInterval time.Duration

	// Watch tunes the settle policy.
	Watch watch.Options

	// Compression applies to saved records.
	Compression record.Compression

	// OpenWith overrides the record's "open with" hint.
	OpenWith string

	// Offline starts the session disconnected.
	Offline bool

	// Clock drives the save scheduler. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger

	// OnSaveError, if set, is called after each failed save.
	OnSaveError func(error)
}

// Status is a point-in-time view of a Session.
type Status struct {
	schedule.Status

	Connected bool

	// Queued counts remote states held while disconnected.
	Queued int

	// Merges counts remote states merged since Open, including the
	// startup scan.
	Merges int64
}

// Session is safe for concurrent use.
type Session struct {
	layout    folder.Layout
	logger    *slog.Logger
	state     state.State
	gate      *gate.Gate
	writer    *writer.Writer
	scheduler *schedule.Scheduler
	watcher   *watch.Watcher

	tasks    chan func()
	stop     chan struct{}
	loopDone chan struct{}

	merges    atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open loads the folder into config.State and starts replicating.
func Open(ctx context.Context, config Config) (*Session, error) {
	if config.State == nil {
		return nil, errors.New("session: State is required")
	}
	if config.Folder == "" {
		return nil, errors.New("session: Folder is required")
	}
	if config.ParticipantID == "" {
		return nil, errors.New("session: ParticipantID is required")
	}
	if config.Compression == "" {
		config.Compression = record.CompressionNone
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	layout := folder.Layout{
		Dir:           config.Folder,
		ParticipantID: config.ParticipantID,
		Window:        config.Window,
	}
	logger = logger.With("participant", layout.PrimaryName())

	session := &Session{
		layout:   layout,
		logger:   logger,
		state:    config.State,
		gate:     gate.New(!config.Offline),
		writer:   writer.New(layout, logger, recordOptions(config)...),
		tasks:    make(chan func()),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	unpublished := session.load(ctx)

	scheduler, err := schedule.New(schedule.Config{
		Interval: config.SaveInterval,
		Clock:    config.Clock,
		Logger:   logger,
		Save:     session.save,
		Enabled:  session.gate.Connected,
		OnError:  config.OnSaveError,
	})
	if err != nil {
		return nil, err
	}
	session.scheduler = scheduler

	session.watcher, err = watch.Start(layout, config.Watch, logger)
	if err != nil {
		return nil, fmt.Errorf("starting watcher: %w", err)
	}

	go session.loop()

	// Persist the merged startup state right away. It publishes only
	// when the shadow file holds a local change the primary file lacks,
	// left by an offline close or a crash between the two writes.
	session.scheduler.MarkChanged(unpublished)
	session.scheduler.Kick()

	logger.Info("session opened",
		"dir", layout.Dir,
		"merges", session.merges.Load(),
		"connected", session.gate.Connected(),
		"local_change", unpublished,
	)
	return session, nil
}

func recordOptions(config Config) []record.Option {
	options := []record.Option{record.WithCompression(config.Compression)}
	if config.OpenWith != "" {
		options = append(options, record.WithOpenWith(config.OpenWith))
	}
	return options
}

// load merges every valid record in the folder. It reports whether the
// shadow file holds a local change that the primary file lacks.
func (s *Session) load(ctx context.Context) (unpublished bool) {
	var shadow, primary []byte
	var shadowLocal bool
	for _, entry := range folder.Scan(ctx, s.layout.Dir, s.logger) {
		switch entry.Path {
		case s.layout.ShadowPath():
			shadow, shadowLocal = entry.Record.State, entry.Record.LocalChange
		case s.layout.PrimaryPath():
			primary = entry.Record.State
		}
		s.merge(entry.Path, entry.Record.State)
	}
	return shadowLocal && !bytes.Equal(shadow, primary)
}

// Layout returns the files this session owns.
func (s *Session) Layout() folder.Layout {
	return s.layout
}

// Mutate runs fn against the state on the session loop. If fn returns
// nil the change is recorded as local and a save is scheduled.
func (s *Session) Mutate(ctx context.Context, fn func(state.State) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.call(ctx, func() error {
		if err := fn(s.state); err != nil {
			return err
		}
		s.scheduler.MarkChanged(true)
		return nil
	})
}

// View runs fn against the state on the session loop without
// recording a change.
func (s *Session) View(ctx context.Context, fn func(state.State) error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.call(ctx, func() error { return fn(s.state) })
}

// NotifyLocalChange records a local change made outside Mutate. Hosts
// that use it must not touch the state concurrently with the session
// (that is, only from inside Mutate or View, or while no merge can
// happen).
func (s *Session) NotifyLocalChange() {
	if s.closed.Load() {
		return
	}
	s.scheduler.MarkChanged(true)
}

// SetConnected simulates connectivity loss and recovery. Going offline
// queues remote states and holds saves. Coming back merges the queue
// in arrival order and saves immediately.
func (s *Session) SetConnected(ctx context.Context, connected bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.call(ctx, func() error {
		drained, changed := s.gate.SetConnected(connected)
		if !changed {
			return nil
		}
		s.logger.Info("connectivity changed", "connected", connected, "queued", len(drained))
		if !connected {
			return nil
		}
		for _, blob := range drained {
			s.merge("offline queue", blob)
		}
		s.scheduler.MarkChanged(false)
		s.scheduler.Kick()
		return nil
	})
}

// Status returns the current state of the session.
func (s *Session) Status() Status {
	return Status{
		Status:    s.scheduler.Status(),
		Connected: s.gate.Connected(),
		Queued:    s.gate.Len(),
		Merges:    s.merges.Load(),
	}
}

// Close stops watching, performs a final save, and stops the loop. The
// final save ignores the debounce interval. While disconnected it
// writes only the shadow file. Safe to call more than once; later
// calls return the first call's result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.watcher.Stop()
		if err := s.scheduler.Flush(ctx); err != nil {
			s.closeErr = fmt.Errorf("closing session: %w", err)
		}
		close(s.stop)
		<-s.loopDone
		s.logger.Info("session closed", "error", s.closeErr)
	})
	return s.closeErr
}

func (s *Session) loop() {
	defer close(s.loopDone)

	events := s.watcher.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				if !s.closed.Load() {
					s.logger.Warn("watcher stopped, remote changes will not be seen until reopen")
				}
				continue
			}
			s.handleEvent(event)
		case task := <-s.tasks:
			task()
		case <-s.stop:
			return
		}
	}
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case s.tasks <- func() { result <- fn() }:
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) handleEvent(event watch.Event) {
	rec, err := folder.ReadRecord(event.Path)
	if err != nil {
		s.logger.Info("ignoring file", "path", event.Path, "error", err)
		return
	}
	if s.gate.Offer(rec.State) {
		s.logger.Info("queued remote state while offline",
			"path", event.Path,
			"queued", s.gate.Len(),
		)
		return
	}
	if s.merge(event.Path, rec.State) {
		s.scheduler.MarkChanged(false)
	}
}

// merge folds one blob into the state. Must run on the loop (or before
// it starts).
func (s *Session) merge(source string, blob []byte) bool {
	if err := s.state.Merge(blob); err != nil {
		s.logger.Warn("merge failed, skipping", "path", source, "error", err)
		return false
	}
	s.merges.Add(1)
	s.logger.Debug("merged remote state", "path", source, "bytes", len(blob))
	return true
}

// save is the scheduler's SaveFunc: snapshot on the loop, write off it.
func (s *Session) save(ctx context.Context, localChange bool) error {
	var blob []byte
	err := s.call(ctx, func() error {
		var err error
		blob, err = s.state.Save()
		return err
	})
	if err != nil {
		return fmt.Errorf("snapshotting state: %w", err)
	}

	if localChange && !s.gate.Connected() {
		// Keep the local change pending so it is published after
		// reconnecting, or by the next session if this one closes first.
		defer s.scheduler.MarkChanged(true)
		return s.writer.Hold(ctx, blob)
	}
	return s.writer.Save(ctx, blob, localChange)
}
