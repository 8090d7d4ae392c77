// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile replaces a file's contents so that readers see
// either the old bytes or the new bytes, never a mixture.
//
// [WriteFile] writes to a hidden temporary file in the destination
// directory, fsyncs it, renames it over the destination, and fsyncs the
// directory. The temporary name starts with "." and ends with ".tmp",
// so folder scans that only consider "*.json" never pick it up.
//
// This package has no dependencies on other fileshare packages.
package atomicfile
