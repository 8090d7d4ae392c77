// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for fileshare
// commands:
//
//   - Fatal error reporting to stderr when the logger may not be
//     initialized (pre-logger).
//   - A logger built from the configured level and format.
//   - A context cancelled by SIGINT or SIGTERM.
package process
