// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/sys/unix"
)

type inotifyEvent struct {
	mask uint32
	name string
}

// parseEvents decodes a buffer read from an inotify descriptor. Layout
// from inotify(7):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded to alignment
//	};
//
// A truncated trailing event is dropped.
func parseEvents(buffer []byte) []inotifyEvent {
	var events []inotifyEvent
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}

		var name string
		if nameLength > 0 {
			nameBytes := buffer[offset+unix.SizeofInotifyEvent : offset+eventSize]
			if end := bytes.IndexByte(nameBytes, 0); end >= 0 {
				nameBytes = nameBytes[:end]
			}
			name = string(nameBytes)
		}
		events = append(events, inotifyEvent{mask: mask, name: name})
		offset += eventSize
	}
	return events
}
