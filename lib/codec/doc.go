// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for state blobs.
//
// The shared folder uses two formats with a clear boundary: JSON for
// the record envelope that other tools may open, and CBOR for state
// blobs that only the merge code reads. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same logical state
// always produces identical bytes and an unchanged state never looks
// like a new one to collaborators.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
