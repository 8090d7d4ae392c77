// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/fileshare/lib/record"
)

// Entry is one valid record found in the folder.
type Entry struct {
	Path   string
	Record record.Record
}

// Scan reads every candidate file in dir and returns the valid records
// in name order. It never fails: a missing or unreadable folder yields
// an empty result (the first-run case), and invalid files are logged
// and skipped. Cancelling ctx stops the scan early with whatever was
// read so far.
func Scan(ctx context.Context, dir string, logger *slog.Logger) []Entry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		logger.Info("shared folder not readable, treating as empty",
			"dir", dir,
			"error", err,
		)
		return nil
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name() < dirEntries[j].Name()
	})

	var entries []Entry
	for _, dirEntry := range dirEntries {
		if ctx.Err() != nil {
			logger.Warn("scan cancelled", "dir", dir, "read", len(entries))
			break
		}
		if dirEntry.IsDir() || !IsCandidate(dirEntry.Name()) {
			continue
		}

		path := filepath.Join(dir, dirEntry.Name())
		rec, err := ReadRecord(path)
		if err != nil {
			logger.Warn("skipping inaccessible, invalid, or incomplete file",
				"path", path,
				"error", err,
			)
			continue
		}
		entries = append(entries, Entry{Path: path, Record: rec})
	}
	return entries
}

// ReadRecord reads and decodes one file. Decode failures wrap
// record.ErrInvalid; read failures are returned as-is.
func ReadRecord(path string) (record.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return record.Record{}, err
	}
	rec, err := record.Decode(data)
	if err != nil {
		return record.Record{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
