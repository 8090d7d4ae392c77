// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"

	"github.com/automerge/automerge-go"
)

// Document is an automerge document. Hosts mutate it through Doc()
// inside a session's Mutate callback.
type Document struct {
	doc *automerge.Doc
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{doc: automerge.New()}
}

// Doc exposes the underlying document.
func (d *Document) Doc() *automerge.Doc {
	return d.doc
}

// Merge loads blob as a document and merges its changes. An empty blob
// is an empty document.
func (d *Document) Merge(blob []byte) error {
	if len(blob) == 0 {
		return nil
	}
	other, err := automerge.Load(blob)
	if err != nil {
		return fmt.Errorf("loading automerge document: %w", err)
	}
	if _, err := d.doc.Merge(other); err != nil {
		return fmt.Errorf("merging automerge document: %w", err)
	}
	return nil
}

// Save returns the compact automerge encoding, committing any pending
// changes.
func (d *Document) Save() ([]byte, error) {
	return d.doc.Save(), nil
}
