// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for fileshare.
//
// Configuration is loaded from a single file specified by either the
// FILESHARE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. Values the file
// omits keep the defaults from [Default].
//
// Files ending in .json or .jsonc are read as JSON with comments and
// trailing commas allowed; anything else is YAML. Both use the same
// snake_case keys.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${FILESHARE_STATE} and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// This package depends on no other fileshare packages except
// lib/record, for the compression names.
package config
