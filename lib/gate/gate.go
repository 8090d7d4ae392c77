// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate simulates loss of connectivity to the shared folder.
//
// While the gate is disconnected, remote state observed in the folder
// is queued instead of merged, and the scheduler holds saves. On
// reconnect the queue is handed back in arrival order for merging.
// This lets a host demonstrate (and test) offline editing followed by
// convergence.
package gate

import "sync"

// Gate is safe for concurrent use.
type Gate struct {
	mu        sync.Mutex
	connected bool
	queue     [][]byte
}

// New returns a gate in the given state.
func New(connected bool) *Gate {
	return &Gate{connected: connected}
}

// Connected reports the current state.
func (g *Gate) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Offer hands a remote state blob to the gate. When disconnected the
// blob is queued and Offer returns true; the caller must not merge it.
// When connected Offer returns false and the caller merges.
func (g *Gate) Offer(blob []byte) (queued bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected {
		return false
	}
	g.queue = append(g.queue, blob)
	return true
}

// SetConnected switches the gate. changed reports whether the state
// actually flipped. On a transition to connected, drained holds every
// queued blob in arrival order and the queue is cleared. Going
// offline keeps any queue (there is none while connected).
func (g *Gate) SetConnected(connected bool) (drained [][]byte, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected == connected {
		return nil, false
	}
	g.connected = connected
	if connected {
		drained = g.queue
		g.queue = nil
	}
	return drained, true
}

// Len returns the number of queued blobs.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}
