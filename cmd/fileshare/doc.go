// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// fileshare keeps one replicated state in sync with collaborators
// through a shared folder managed by an external sync client.
//
// It loads every record in the folder, merges them, and then reads
// commands from stdin:
//
//	add <item>          add an item (--state gset)
//	set <key> <value>   set a key (--state automerge)
//	show                print the merged state
//	offline / online    simulate losing and regaining connectivity
//	status              print save and connectivity status
//	quit                save and exit
//
// Changes from other participants are merged as their files settle.
// The session saves on EOF, quit, SIGINT and SIGTERM before exiting.
//
// Only one fileshare process may run per participant and window on a
// machine; a second fails with "another instance is already running".
package main
