// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerJSON(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := NewLogger(&buffer, "json", slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("saved", "path", "/shared/laptop.json")

	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buffer.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "saved" || entry["path"] != "/shared/laptop.json" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buffer bytes.Buffer
	logger, err := NewLogger(&buffer, "text", slog.LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buffer.String(), "msg=visible") {
		t.Errorf("text output = %q", buffer.String())
	}
}

func TestNewLoggerUnknownFormat(t *testing.T) {
	if _, err := NewLogger(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Error("NewLogger accepted an unknown format")
	}
}
