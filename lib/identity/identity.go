// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity derives a participant ID that is stable across
// restarts of one machine and distinct between machines.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/fileshare/lib/atomicfile"
	"github.com/google/uuid"
)

// FileName is the file in the state directory holding a generated ID.
const FileName = "participant-id"

const maxLength = 64

// Options controls Resolve.
type Options struct {
	// Override is used verbatim (after sanitizing) when set.
	Override string

	// StateDir holds the generated ID when no hostname is available.
	StateDir string

	// Hostname defaults to os.Hostname.
	Hostname func() (string, error)
}

// Resolve returns the participant ID: Override if set, else the
// hostname, else a UUIDv7 generated once and persisted in StateDir.
func Resolve(options Options) (string, error) {
	if options.Override != "" {
		id := Sanitize(options.Override)
		if id == "" {
			return "", fmt.Errorf("participant ID %q has no usable characters", options.Override)
		}
		return id, nil
	}

	hostname := options.Hostname
	if hostname == nil {
		hostname = os.Hostname
	}
	if name, err := hostname(); err == nil {
		if id := Sanitize(name); id != "" {
			return id, nil
		}
	}

	return persisted(options.StateDir)
}

func persisted(stateDir string) (string, error) {
	if stateDir == "" {
		return "", errors.New("no hostname and no state directory for a generated participant ID")
	}
	path := filepath.Join(stateDir, FileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := Sanitize(strings.TrimSpace(string(data))); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading participant ID: %w", err)
	}

	generated, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating participant ID: %w", err)
	}
	id := generated.String()
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persisting participant ID: %w", err)
	}
	return id, nil
}

// Sanitize makes s safe as a file name prefix in the shared folder:
// runs of characters outside [A-Za-z0-9._-] become a single '-', and
// leading dots and dashes are removed so the name is neither hidden
// nor mistaken for a shadow file. The result is at most 64 bytes and
// may be empty.
func Sanitize(s string) string {
	var builder strings.Builder
	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			builder.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	id := strings.TrimLeft(builder.String(), ".-")
	if len(id) > maxLength {
		id = id[:maxLength]
	}
	return strings.TrimRight(id, "-")
}
