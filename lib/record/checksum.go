// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// checksumKey is the BLAKE3 key for state checksums: the ASCII domain
// name zero-padded to 32 bytes. Changing it invalidates every checksum
// already written.
var checksumKey = [32]byte{
	'f', 'i', 'l', 'e', 's', 'h', 'a', 'r', 'e', '.', 'r', 'e', 'c', 'o', 'r', 'd',
	'.', 's', 't', 'a', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Checksum returns "blake3:<hex>" for the given uncompressed state.
func Checksum(state []byte) string {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(checksumKey[:])
	if err != nil {
		panic("record: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(state)
	return "blake3:" + hex.EncodeToString(hasher.Sum(nil))
}
