// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package record encodes and decodes the self-describing JSON files that
// participants leave in the shared folder.
//
// A record wraps one opaque state blob with the writer's participant ID,
// a format version, and a type tag:
//
//	{
//	  "open with": "fileshare, https://github.com/bureau-foundation/fileshare",
//	  "version": "1.0.0",
//	  "type": "com.bureau-foundation.fileshare.FileContent",
//	  "deviceID": "laptop",
//	  "savedState": "AAECAw==",
//	  "checksum": "blake3:9f2c..."
//	}
//
// The encoded form always ends with "\n}" and no trailing newline.
// Writers elsewhere in the folder's sync group may write records in
// place, so [Decode] treats a file that does not end that way as still
// being written.
//
// Everything [Decode] rejects (wrong type tag, malformed JSON,
// truncation, bad base64, failed decompression, checksum mismatch)
// is reported as an error wrapping [ErrInvalid]. Callers skip such
// files; they are never fatal.
//
// The state blob may be compressed with LZ4 or zstd before base64
// encoding. The checksum is a keyed BLAKE3 hash of the uncompressed
// state. Records without a checksum or compression field are accepted.
//
// Shadow files written for a local change carry "localChange": true.
// Primary files never carry it.
package record
