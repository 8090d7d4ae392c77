// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// Type is the discriminator every valid record carries. Files with
	// any other type are someone else's and are ignored.
	Type = "com.bureau-foundation.fileshare.FileContent"

	// FormatVersion is written into every record this package encodes.
	FormatVersion = "1.0.0"

	// DefaultOpenWith is the human-readable hint for someone who finds
	// a record in their synced folder and wonders what made it.
	DefaultOpenWith = "fileshare, https://github.com/bureau-foundation/fileshare"

	// terminator is the suffix of a completely written record.
	terminator = "\n}"
)

var (
	// ErrInvalid is wrapped by every error Decode returns.
	ErrInvalid = errors.New("invalid record")

	// ErrIncomplete means the bytes do not end with the record
	// terminator, usually because the file is still being written.
	ErrIncomplete = fmt.Errorf("%w: incomplete", ErrInvalid)

	// ErrMalformed means the bytes are not a well-formed record.
	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalid)

	// ErrForeignType means the record's type tag is not Type.
	ErrForeignType = fmt.Errorf("%w: foreign type", ErrInvalid)

	// ErrChecksum means the decoded state does not match the record's
	// checksum.
	ErrChecksum = fmt.Errorf("%w: checksum mismatch", ErrInvalid)
)

// Record is a decoded shared-folder record.
type Record struct {
	OpenWith      string
	Version       string
	Type          string
	ParticipantID string

	// Compression is how State was stored on disk. State itself is
	// always the uncompressed blob.
	Compression Compression

	// LocalChange marks a shadow file whose state includes a local
	// change. If the primary file does not hold the same state, that
	// change was never published.
	LocalChange bool

	// State is the opaque state blob.
	State []byte
}

// fileContent is the on-disk JSON layout. Field order is the key order
// in the encoded file.
type fileContent struct {
	OpenWith    string `json:"open with"`
	Version     string `json:"version"`
	Type        string `json:"type"`
	DeviceID    string `json:"deviceID"`
	SavedState  string `json:"savedState"`
	Compression string `json:"compression,omitempty"`
	Length      int    `json:"length,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
	LocalChange bool   `json:"localChange,omitempty"`
}

// Option configures Encode.
type Option func(*options)

type options struct {
	openWith    string
	compression Compression
	localChange bool
}

// WithOpenWith overrides the "open with" hint.
func WithOpenWith(openWith string) Option {
	return func(o *options) { o.openWith = openWith }
}

// WithCompression compresses the state before base64 encoding. If the
// state does not shrink, it is stored uncompressed.
func WithCompression(compression Compression) Option {
	return func(o *options) { o.compression = compression }
}

// WithLocalChange sets the record's localChange marker.
func WithLocalChange(localChange bool) Option {
	return func(o *options) { o.localChange = localChange }
}

// Encode produces the record bytes for state written by participantID.
// The only error is an unknown compression.
func Encode(participantID string, state []byte, opts ...Option) ([]byte, error) {
	o := options{openWith: DefaultOpenWith, compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}

	content := fileContent{
		OpenWith:    o.openWith,
		Version:     FormatVersion,
		Type:        Type,
		DeviceID:    participantID,
		Checksum:    Checksum(state),
		LocalChange: o.localChange,
	}

	payload := state
	if o.compression != CompressionNone {
		compressed, err := compress(state, o.compression)
		switch {
		case errors.Is(err, errIncompressible):
		case err != nil:
			return nil, err
		default:
			payload = compressed
			content.Compression = string(o.compression)
			content.Length = len(state)
		}
	}
	content.SavedState = base64.StdEncoding.EncodeToString(payload)

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling record: %w", err)
	}
	return data, nil
}

// Decode parses record bytes. Every failure wraps ErrInvalid.
func Decode(data []byte) (Record, error) {
	trimmed := bytes.TrimRight(data, " \t\r\n")
	if !bytes.HasSuffix(trimmed, []byte(terminator)) {
		return Record{}, fmt.Errorf("%w: %d bytes without trailing %q", ErrIncomplete, len(data), terminator)
	}

	var content fileContent
	if err := json.Unmarshal(trimmed, &content); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if content.Type != Type {
		return Record{}, fmt.Errorf("%w: %q", ErrForeignType, content.Type)
	}

	payload, err := base64.StdEncoding.DecodeString(content.SavedState)
	if err != nil {
		return Record{}, fmt.Errorf("%w: savedState: %v", ErrMalformed, err)
	}

	compression := CompressionNone
	if content.Compression != "" {
		compression, err = ParseCompression(content.Compression)
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	state, err := decompress(payload, compression, content.Length)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if content.Checksum != "" && content.Checksum != Checksum(state) {
		return Record{}, fmt.Errorf("%w: got %s, record says %s", ErrChecksum, Checksum(state), content.Checksum)
	}

	return Record{
		OpenWith:      content.OpenWith,
		Version:       content.Version,
		Type:          content.Type,
		ParticipantID: content.DeviceID,
		Compression:   compression,
		LocalChange:   content.LocalChange,
		State:         state,
	}, nil
}
