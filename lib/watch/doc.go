// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch reports files in the shared folder that other
// participants have finished writing.
//
// A [Watcher] holds an inotify watch on the folder and turns raw
// create/modify/rename events into [Event] values on a channel. Sync
// clients write files in pieces, so a path is only reported once its
// size has stopped changing for the stability threshold. The
// participant's own files (see folder.Layout.IsOwned) and anything that
// is not a record candidate are filtered out before settling.
//
// Linux only.
package watch
