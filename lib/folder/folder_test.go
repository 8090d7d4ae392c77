// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package folder

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/fileshare/lib/record"
)

func TestLayoutNames(t *testing.T) {
	tests := []struct {
		layout      Layout
		wantPrimary string
		wantShadow  string
	}{
		{Layout{ParticipantID: "laptop"}, "laptop.json", ".~latest.json"},
		{Layout{ParticipantID: "laptop", Window: "2"}, "laptop-2.json", ".~latest-2.json"},
	}
	for _, test := range tests {
		if got := test.layout.PrimaryName(); got != test.wantPrimary {
			t.Errorf("PrimaryName() = %q, want %q", got, test.wantPrimary)
		}
		if got := test.layout.ShadowName(); got != test.wantShadow {
			t.Errorf("ShadowName() = %q, want %q", got, test.wantShadow)
		}
	}

	layout := Layout{Dir: "/shared", ParticipantID: "laptop"}
	if got := layout.PrimaryPath(); got != "/shared/laptop.json" {
		t.Errorf("PrimaryPath() = %q", got)
	}
	if got := layout.ShadowPath(); got != "/shared/.~latest.json" {
		t.Errorf("ShadowPath() = %q", got)
	}
}

func TestLayoutIsOwned(t *testing.T) {
	layout := Layout{ParticipantID: "laptop"}
	tests := []struct {
		name string
		want bool
	}{
		{"laptop.json", true},
		{".~latest.json", true},
		{".~latest-3.json", true},
		{"laptop-2.json", false},
		{"desktop.json", false},
		{"laptop.json.bak", false},
	}
	for _, test := range tests {
		if got := layout.IsOwned(test.name); got != test.want {
			t.Errorf("IsOwned(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"desktop.json", true},
		{".~latest.json", true},
		{"notes.txt", false},
		{".desktop.json.123456.tmp", false},
		{"desktop.json.tmp", false},
	}
	for _, test := range tests {
		if got := IsCandidate(test.name); got != test.want {
			t.Errorf("IsCandidate(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func writeRecord(t *testing.T, dir, name, participant string, state []byte) {
	t.Helper()
	data, err := record.Encode(participant, state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScanSkipsForeignAndInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "desktop.json", "desktop", []byte("desktop state"))

	foreign := []byte("{\n  \"type\": \"com.example.Other\",\n  \"savedState\": \"c3RhdGU=\"\n}")
	if err := os.WriteFile(filepath.Join(dir, "other.json"), foreign, 0o644); err != nil {
		t.Fatal(err)
	}

	entries := Scan(context.Background(), dir, nil)
	if len(entries) != 1 {
		t.Fatalf("Scan returned %d entries, want 1", len(entries))
	}
	if !bytes.Equal(entries[0].Record.State, []byte("desktop state")) {
		t.Errorf("State = %q, want %q", entries[0].Record.State, "desktop state")
	}
	if entries[0].Record.ParticipantID != "desktop" {
		t.Errorf("ParticipantID = %q, want %q", entries[0].Record.ParticipantID, "desktop")
	}
}

func TestScanIncludesOwnFilesAndIgnoresNonCandidates(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "laptop.json", "laptop", []byte("a"))
	writeRecord(t, dir, ".~latest.json", "laptop", []byte("b"))
	writeRecord(t, dir, "desktop.json", "desktop", []byte("c"))

	// A valid record under a non-candidate name is never read.
	writeRecord(t, dir, ".desktop.json.999.tmp", "desktop", []byte("temp"))
	writeRecord(t, dir, "readme.txt", "desktop", []byte("text"))

	// Truncated mid-write.
	data, err := record.Encode("phone", []byte("partial"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "phone.json"), data[:len(data)/2], 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.Mkdir(filepath.Join(dir, "subdir.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries := Scan(context.Background(), dir, nil)
	var states []string
	for _, entry := range entries {
		states = append(states, string(entry.Record.State))
	}
	// Name order: ".~latest.json" < "desktop.json" < "laptop.json".
	want := []string{"b", "c", "a"}
	if len(states) != len(want) {
		t.Fatalf("states = %q, want %q", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}

func TestScanMissingFolder(t *testing.T) {
	entries := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	if len(entries) != 0 {
		t.Fatalf("Scan of missing folder returned %d entries", len(entries))
	}
}

func TestScanCancelled(t *testing.T) {
	dir := t.TempDir()
	writeRecord(t, dir, "desktop.json", "desktop", []byte("c"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if entries := Scan(ctx, dir, nil); len(entries) != 0 {
		t.Fatalf("cancelled Scan returned %d entries", len(entries))
	}
}

func TestReadRecordErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRecord(filepath.Join(dir, "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want os.ErrNotExist", err)
	}

	path := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(path, []byte("not a record"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ReadRecord(path)
	if !errors.Is(err, record.ErrInvalid) {
		t.Errorf("garbage file: got %v, want record.ErrInvalid", err)
	}
}
