// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/fileshare/lib/atomicfile"
)

const (
	// Extension is the suffix of every record file.
	Extension = ".json"

	// ShadowPrefix starts every shadow file name.
	ShadowPrefix = ".~latest"
)

// Layout names the files one participant owns in a shared folder.
type Layout struct {
	// Dir is the shared folder.
	Dir string

	// ParticipantID identifies the writer among collaborators.
	ParticipantID string

	// Window disambiguates several sessions of one participant (for
	// example, several windows of one desktop app). Empty for the
	// common single-session case.
	Window string
}

// PrimaryName is the base name of the file collaborators read.
func (l Layout) PrimaryName() string {
	return l.ParticipantID + l.windowSuffix() + Extension
}

// ShadowName is the base name of the unsynced newest-state file.
func (l Layout) ShadowName() string {
	return ShadowPrefix + l.windowSuffix() + Extension
}

// PrimaryPath is the full path of the primary file.
func (l Layout) PrimaryPath() string {
	return filepath.Join(l.Dir, l.PrimaryName())
}

// ShadowPath is the full path of the shadow file.
func (l Layout) ShadowPath() string {
	return filepath.Join(l.Dir, l.ShadowName())
}

func (l Layout) windowSuffix() string {
	if l.Window == "" {
		return ""
	}
	return "-" + l.Window
}

// IsOwned reports whether a base name is one of this participant's own
// files: the primary file by exact match, and any shadow file by
// prefix, since every shadow file in a folder belongs to a session on
// this machine.
func (l Layout) IsOwned(name string) bool {
	return name == l.PrimaryName() || strings.HasPrefix(name, ShadowPrefix)
}

// IsCandidate reports whether a base name could hold a record.
// Temporary files from in-progress atomic writes are excluded.
func IsCandidate(name string) bool {
	return strings.HasSuffix(name, Extension) && !strings.HasSuffix(name, atomicfile.TempSuffix)
}
