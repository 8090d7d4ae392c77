// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/fileshare/lib/codec"
)

const growSetVersion = 1

// GrowSet is a grow-only set of strings. Items can be added but never
// removed, which makes union a valid merge.
type GrowSet struct {
	items map[string]struct{}
}

type growSetBlob struct {
	Version int      `cbor:"version"`
	Items   []string `cbor:"items"`
}

// NewGrowSet returns an empty set.
func NewGrowSet() *GrowSet {
	return &GrowSet{items: make(map[string]struct{})}
}

// Add inserts item. It reports whether the set changed.
func (s *GrowSet) Add(item string) bool {
	if _, exists := s.items[item]; exists {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

// Contains reports whether item is in the set.
func (s *GrowSet) Contains(item string) bool {
	_, exists := s.items[item]
	return exists
}

// Items returns the items in sorted order.
func (s *GrowSet) Items() []string {
	items := make([]string, 0, len(s.items))
	for item := range s.items {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// Len returns the number of items.
func (s *GrowSet) Len() int {
	return len(s.items)
}

// Merge adds every item in blob. An empty blob is an empty set.
func (s *GrowSet) Merge(blob []byte) error {
	if len(blob) == 0 {
		return nil
	}
	var decoded growSetBlob
	if err := codec.Unmarshal(blob, &decoded); err != nil {
		return fmt.Errorf("decoding grow set: %w", err)
	}
	if decoded.Version > growSetVersion {
		return fmt.Errorf("grow set version %d is newer than supported version %d", decoded.Version, growSetVersion)
	}
	for _, item := range decoded.Items {
		s.items[item] = struct{}{}
	}
	return nil
}

// Save encodes the set deterministically: equal sets produce equal
// blobs.
func (s *GrowSet) Save() ([]byte, error) {
	return codec.Marshal(growSetBlob{Version: growSetVersion, Items: s.Items()})
}
