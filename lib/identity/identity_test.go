// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func noHostname() (string, error) { return "", errors.New("no hostname") }

func TestSanitize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"laptop", "laptop"},
		{"Jane's MacBook Pro", "Jane-s-MacBook-Pro"},
		{"host.example.com", "host.example.com"},
		{".~latest", "latest"},
		{"..hidden", "hidden"},
		{"under_score-dash", "under_score-dash"},
		{"ünïcödé", "n-c-d"},
		{"///", ""},
		{strings.Repeat("a", 100), strings.Repeat("a", 64)},
	}
	for _, test := range tests {
		if got := Sanitize(test.input); got != test.want {
			t.Errorf("Sanitize(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestResolveOverride(t *testing.T) {
	id, err := Resolve(Options{Override: "my desk", Hostname: noHostname})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "my-desk" {
		t.Errorf("id = %q, want %q", id, "my-desk")
	}

	if _, err := Resolve(Options{Override: "..."}); err == nil {
		t.Error("Resolve accepted an override with no usable characters")
	}
}

func TestResolveHostname(t *testing.T) {
	id, err := Resolve(Options{
		Hostname: func() (string, error) { return "workstation.local", nil },
		StateDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "workstation.local" {
		t.Errorf("id = %q, want %q", id, "workstation.local")
	}
}

func TestResolvePersistsGeneratedID(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "state")

	first, err := Resolve(Options{Hostname: noHostname, StateDir: stateDir})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("generated ID %q is not a UUID: %v", first, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("generated UUID version = %d, want 7", parsed.Version())
	}

	second, err := Resolve(Options{Hostname: noHostname, StateDir: stateDir})
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first != second {
		t.Errorf("generated ID not stable: %q then %q", first, second)
	}

	data, err := os.ReadFile(filepath.Join(stateDir, FileName))
	if err != nil {
		t.Fatalf("reading persisted ID: %v", err)
	}
	if strings.TrimSpace(string(data)) != first {
		t.Errorf("persisted %q, resolved %q", data, first)
	}
}

func TestResolveWithoutHostnameOrStateDir(t *testing.T) {
	if _, err := Resolve(Options{Hostname: noHostname}); err == nil {
		t.Error("Resolve succeeded with nothing to derive an ID from")
	}
}
