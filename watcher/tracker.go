// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"sort"
)

// PeerTracker keeps the per peer bookkeeping of the coordinator: the peers
// known to be connected, the peers the current filter was sent to (armed),
// and which of the peers that were sent a filter are streaming merkle blocks.
//
// Every change of the filter starts a new generation.  Peers loaded with an
// older generation stay tracked for scanning but no longer count as armed.
//
// PeerTracker is not safe for concurrent access.
type PeerTracker struct {
	known map[PeerID]struct{}

	// loaded maps every peer that was sent a filter to its state.
	loaded map[PeerID]*loadedPeer

	// generation is the generation of the current filter.
	generation uint64

	// scanning is the number of loaded peers whose flag is set.
	scanning int
}

// loadedPeer is the state of a peer that was sent a filter.
type loadedPeer struct {
	generation uint64
	scanning   bool
}

// NewPeerTracker returns an empty PeerTracker.
func NewPeerTracker() *PeerTracker {
	return &PeerTracker{
		known:  make(map[PeerID]struct{}),
		loaded: make(map[PeerID]*loadedPeer),
	}
}

// Register adds the peer to the known set.  It returns false when the peer
// was already known.
func (t *PeerTracker) Register(peer PeerID) bool {
	if _, ok := t.known[peer]; ok {
		return false
	}
	t.known[peer] = struct{}{}
	return true
}

// Deregister removes the peer from the known and armed sets.  Unknown peers
// are ignored.  It returns true when removing the peer flipped the aggregate
// scanning state.
func (t *PeerTracker) Deregister(peer PeerID) bool {
	delete(t.known, peer)

	state, ok := t.loaded[peer]
	if !ok {
		return false
	}
	delete(t.loaded, peer)

	return state.scanning && t.setScanningCount(t.scanning-1)
}

// Arm marks the passed peers as holding the current filter.  Armed peers
// start out not scanning.  It returns true when the aggregate scanning state
// flipped.
func (t *PeerTracker) Arm(peers []PeerID) bool {
	count := t.scanning
	for _, peer := range peers {
		if state, ok := t.loaded[peer]; ok && state.scanning {
			count--
		}
		t.loaded[peer] = &loadedPeer{generation: t.generation}
	}
	return t.setScanningCount(count)
}

// Invalidate records that the filter changed.  Every armed peer holds a stale
// filter afterwards and is reported by Unarmed again; scanning state is kept.
func (t *PeerTracker) Invalidate() {
	t.generation++
}

// MarkScanning sets the scanning flag of a peer that was sent a filter.
// Other peers are ignored since disconnects and scan events may race.  It
// returns true only when the aggregate "any peer scanning" state flipped.
func (t *PeerTracker) MarkScanning(peer PeerID, active bool) bool {
	state, ok := t.loaded[peer]
	if !ok || state.scanning == active {
		return false
	}
	state.scanning = active

	if active {
		return t.setScanningCount(t.scanning + 1)
	}
	return t.setScanningCount(t.scanning - 1)
}

// Clear drops all armed and scanning state while keeping the known peers.  It
// returns true when peers were scanning.
func (t *PeerTracker) Clear() bool {
	t.loaded = make(map[PeerID]*loadedPeer)
	return t.setScanningCount(0)
}

// setScanningCount updates the number of scanning peers and reports whether
// the aggregate state flipped.
func (t *PeerTracker) setScanningCount(count int) bool {
	before := t.scanning > 0
	t.scanning = count
	return before != (count > 0)
}

// AnyScanning returns true when at least one peer is scanning.
func (t *PeerTracker) AnyScanning() bool {
	return t.scanning > 0
}

// IsKnown returns whether the peer is connected.
func (t *PeerTracker) IsKnown(peer PeerID) bool {
	_, ok := t.known[peer]
	return ok
}

// IsArmed returns whether the current filter was sent to the peer.
func (t *PeerTracker) IsArmed(peer PeerID) bool {
	state, ok := t.loaded[peer]
	return ok && state.generation == t.generation
}

// IsScanning returns whether the peer is streaming merkle blocks.
func (t *PeerTracker) IsScanning(peer PeerID) bool {
	state, ok := t.loaded[peer]
	return ok && state.scanning
}

// Known returns the known peers in sorted order.
func (t *PeerTracker) Known() []PeerID {
	peers := make([]PeerID, 0, len(t.known))
	for peer := range t.known {
		peers = append(peers, peer)
	}
	return sortPeers(peers)
}

// Armed returns the armed peers in sorted order.
func (t *PeerTracker) Armed() []PeerID {
	peers := make([]PeerID, 0, len(t.loaded))
	for peer := range t.loaded {
		if t.IsArmed(peer) {
			peers = append(peers, peer)
		}
	}
	return sortPeers(peers)
}

// Unarmed returns the known peers that have not received the current filter
// in sorted order.
func (t *PeerTracker) Unarmed() []PeerID {
	var peers []PeerID
	for peer := range t.known {
		if !t.IsArmed(peer) {
			peers = append(peers, peer)
		}
	}
	return sortPeers(peers)
}

func sortPeers(peers []PeerID) []PeerID {
	sort.Slice(peers, func(i, j int) bool {
		return peers[i] < peers[j]
	})
	return peers
}
