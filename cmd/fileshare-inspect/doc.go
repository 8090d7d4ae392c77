// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// fileshare-inspect lists the files in a shared folder and what a
// session would make of each one: whose record it is, its format
// version and compression, the size of its state, or why it would be
// skipped. It only reads the folder.
//
//	fileshare-inspect ~/Dropbox/groceries
//	fileshare-inspect --json ~/Dropbox/groceries
package main
