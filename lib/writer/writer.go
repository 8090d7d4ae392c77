// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package writer persists a participant's state into the shared folder
// with a two-phase save: the shadow file first, then (only for local
// changes) the primary file.
//
// A crash between the phases leaves the primary file untouched and the
// shadow file holding the new state, marked as a local change, which
// the next session loads and publishes. A save that only merged remote
// state never rewrites the primary file, so collaborators do not
// receive an echo of their own changes.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync/atomic"

	"github.com/bureau-foundation/fileshare/lib/atomicfile"
	"github.com/bureau-foundation/fileshare/lib/folder"
	"github.com/bureau-foundation/fileshare/lib/record"
)

// ErrSaveInProgress is returned when Save or Hold is called while
// another call on the same Writer has not returned. The scheduler never does this;
// the check catches callers that bypass it.
var ErrSaveInProgress = errors.New("save already in progress")

// Writer saves state for one participant layout.
type Writer struct {
	layout  folder.Layout
	options []record.Option
	logger  *slog.Logger

	saving atomic.Bool

	// writeFile is atomicfile.WriteFile outside tests.
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// New creates a Writer. Record options (compression, "open with"
// hint) apply to every saved file.
func New(layout folder.Layout, logger *slog.Logger, options ...record.Option) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{
		layout:    layout,
		options:   options,
		logger:    logger,
		writeFile: atomicfile.WriteFile,
	}
}

// Save writes state to the shadow file and, iff localChange, to the
// primary file. I/O errors are returned unretried; the scheduler
// decides whether to try again.
func (w *Writer) Save(ctx context.Context, state []byte, localChange bool) error {
	return w.save(ctx, state, localChange, localChange)
}

// Hold writes a local change to the shadow file only, marked so the
// next session publishes it. Used while the shared folder must not be
// written.
func (w *Writer) Hold(ctx context.Context, state []byte) error {
	return w.save(ctx, state, true, false)
}

func (w *Writer) save(ctx context.Context, state []byte, localChange, publish bool) error {
	if !w.saving.CompareAndSwap(false, true) {
		return ErrSaveInProgress
	}
	defer w.saving.Store(false)

	if err := os.MkdirAll(w.layout.Dir, 0o755); err != nil {
		return fmt.Errorf("creating shared folder: %w", err)
	}

	shadow, err := record.Encode(w.layout.ParticipantID, state,
		append(slices.Clip(w.options), record.WithLocalChange(localChange))...)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := w.writeFile(w.layout.ShadowPath(), shadow, 0o644); err != nil {
		return fmt.Errorf("writing shadow file: %w", err)
	}

	if !publish {
		w.logger.Debug("saved shadow file",
			"path", w.layout.ShadowPath(),
			"bytes", len(shadow),
			"local_change", localChange,
		)
		return nil
	}

	// A cancelled caller still gets a consistent shadow file, but the
	// primary write is skipped and reported.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("writing primary file: %w", err)
	}
	primary, err := record.Encode(w.layout.ParticipantID, state, w.options...)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := w.writeFile(w.layout.PrimaryPath(), primary, 0o644); err != nil {
		return fmt.Errorf("writing primary file: %w", err)
	}

	w.logger.Debug("saved primary and shadow files",
		"path", w.layout.PrimaryPath(),
		"bytes", len(primary),
		"local_change", true,
	)
	return nil
}
