// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names how a record's state is stored. The names are
// written into records, so they are part of the file format.
type Compression string

const (
	// CompressionNone stores the state as-is.
	CompressionNone Compression = "none"

	// CompressionLZ4 stores the state as one LZ4 block. Fast, modest
	// ratio; a good default for binary CRDT saves.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd stores the state as a zstd frame at the default
	// level. Better ratio for text-heavy state.
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q", name)
	}
}

// MaxStateSize bounds the uncompressed length a record may claim.
// Decode rejects larger lengths before allocating anything.
const MaxStateSize = 256 << 20

// errIncompressible is returned when compressing would not shrink the
// data. Encode stores such state uncompressed.
var errIncompressible = errors.New("data is incompressible")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("record: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxStateSize))
	if err != nil {
		panic("record: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock returns 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

// decompress reverses compress. length is the uncompressed size
// recorded alongside compressed state and must match exactly.
func decompress(payload []byte, compression Compression, length int) ([]byte, error) {
	if compression == CompressionNone {
		return payload, nil
	}
	if length <= 0 {
		return nil, fmt.Errorf("%s state with length %d", compression, length)
	}
	if length > MaxStateSize {
		return nil, fmt.Errorf("%s state length %d exceeds %d", compression, length, MaxStateSize)
	}

	switch compression {
	case CompressionLZ4:
		destination := make([]byte, length)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != length {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, length)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, length))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != length {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), length)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}
