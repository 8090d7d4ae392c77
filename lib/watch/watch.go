// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/fileshare/lib/clock"
	"github.com/bureau-foundation/fileshare/lib/folder"
	"golang.org/x/sys/unix"
)

const (
	// DefaultStabilityThreshold is how long a file's size must stay
	// unchanged before it is reported.
	DefaultStabilityThreshold = 200 * time.Millisecond

	// DefaultPollInterval is how often settling files are checked.
	DefaultPollInterval = 100 * time.Millisecond

	watchMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO
)

// Event reports a file that was added or modified and has settled.
type Event struct {
	Path string
}

// Options tunes the settle policy. Zero values take the defaults.
type Options struct {
	StabilityThreshold time.Duration
	PollInterval       time.Duration

	// Clock measures stability. The inotify poll timeout always uses
	// real time.
	Clock clock.Clock
}

// Watcher is one inotify subscription on a shared folder.
type Watcher struct {
	layout  folder.Layout
	options Options
	logger  *slog.Logger
	fd      int

	events   chan Event
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// settling tracks a path between its last inotify event and the moment
// its size has been stable long enough.
type settling struct {
	size        int64
	stableSince time.Time
}

// Start creates the folder if missing, installs the watch, and starts
// the watch goroutine. Call Stop to release it.
func Start(layout folder.Layout, options Options, logger *slog.Logger) (*Watcher, error) {
	if options.StabilityThreshold <= 0 {
		options.StabilityThreshold = DefaultStabilityThreshold
	}
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(layout.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating shared folder: %w", err)
	}

	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("initializing inotify: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, layout.Dir, watchMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("watching %s: %w", layout.Dir, err)
	}

	watcher := &Watcher{
		layout:  layout,
		options: options,
		logger:  logger,
		fd:      fd,
		events:  make(chan Event, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.loop()
	return watcher, nil
}

// Events returns the stream of settled files. The channel is closed
// when the watcher stops, either through Stop or because the folder
// itself was removed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop ends the watch and blocks until the goroutine has exited and
// the inotify descriptor is closed. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.events)
	defer unix.Close(w.fd)

	buffer := make([]byte, 64*1024)
	pending := make(map[string]*settling)
	timeout := int(w.options.PollInterval / time.Millisecond)
	if timeout < 1 {
		timeout = 1
	}

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		pollDescriptors := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, timeout)
		if err != nil && !errors.Is(err, unix.EINTR) {
			w.logger.Error("polling inotify descriptor, watcher exiting", "error", err)
			return
		}

		if count > 0 {
			alive := w.readEvents(buffer, pending)
			if !alive {
				return
			}
		}

		if !w.settle(pending) {
			return
		}
	}
}

// readEvents drains the inotify descriptor into pending. It returns
// false if the watch is gone.
func (w *Watcher) readEvents(buffer []byte, pending map[string]*settling) bool {
	for {
		bytesRead, err := unix.Read(w.fd, buffer)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				return true
			}
			w.logger.Error("reading inotify descriptor, watcher exiting", "error", err)
			return false
		}
		if bytesRead <= 0 {
			return true
		}

		for _, event := range parseEvents(buffer[:bytesRead]) {
			switch {
			case event.mask&unix.IN_IGNORED != 0:
				w.logger.Warn("shared folder watch removed, watcher exiting", "dir", w.layout.Dir)
				return false
			case event.mask&unix.IN_Q_OVERFLOW != 0:
				w.logger.Warn("inotify queue overflowed, rescanning folder", "dir", w.layout.Dir)
				w.trackAll(pending)
			case event.mask&unix.IN_ISDIR != 0:
			default:
				w.track(event.name, pending)
			}
		}
	}
}

// track starts (or restarts) the settle window for a name that passes
// the candidate and self-write filters.
func (w *Watcher) track(name string, pending map[string]*settling) {
	if name == "" || !folder.IsCandidate(name) || w.layout.IsOwned(name) {
		return
	}
	path := filepath.Join(w.layout.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		delete(pending, path)
		return
	}
	pending[path] = &settling{size: info.Size(), stableSince: w.options.Clock.Now()}
}

// trackAll puts every candidate in the folder back into pending, for
// when individual events were lost.
func (w *Watcher) trackAll(pending map[string]*settling) {
	entries, err := os.ReadDir(w.layout.Dir)
	if err != nil {
		w.logger.Warn("rescanning shared folder", "dir", w.layout.Dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.track(entry.Name(), pending)
		}
	}
}

// settle emits every pending path whose size has been stable for the
// threshold, and drops paths that have vanished. It returns false if
// the watcher was stopped while delivering.
func (w *Watcher) settle(pending map[string]*settling) bool {
	now := w.options.Clock.Now()
	for path, state := range pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(pending, path)
			continue
		}
		if info.Size() != state.size {
			state.size = info.Size()
			state.stableSince = now
			continue
		}
		if now.Sub(state.stableSince) < w.options.StabilityThreshold {
			continue
		}

		delete(pending, path)
		select {
		case w.events <- Event{Path: path}:
		case <-w.stop:
			return false
		}
	}
	return true
}
