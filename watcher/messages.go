// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Event is an inbound message from the network engine.
type Event interface {
	event()
}

// Ready is sent once the engine has loaded its headers and is connected to
// the network.
type Ready struct {
	Tip  uint64
	Time time.Time
}

// BlockConnected is sent when a new block extends the best chain.
type BlockConnected struct {
	Hash   chainhash.Hash
	Height uint64
}

// PeerNegotiated is sent once the handshake with a peer completed.
type PeerNegotiated struct {
	Peer     PeerID
	Services wire.ServiceFlag
}

// PeerDisconnected is sent when a peer connection is gone.
type PeerDisconnected struct {
	Peer PeerID
}

// MerkleScanStarted is sent when a peer starts streaming merkle blocks.
type MerkleScanStarted struct {
	Peer PeerID
}

// MerkleScanStopped is sent when a peer stopped streaming merkle blocks.
type MerkleScanStopped struct {
	Peer PeerID
}

// MatchedTransaction is sent for every transaction a peer relayed because it
// matched the loaded filter.  The same transaction may arrive from several
// peers.
type MatchedTransaction struct {
	Peer PeerID
	Tx   *btcutil.Tx
}

// ReceivedMerkleBlock is sent for every merkle block a peer relayed.
// Verification of the proof is left to the engine.
type ReceivedMerkleBlock struct {
	Peer        PeerID
	Height      uint64
	MerkleBlock *wire.MsgMerkleBlock
}

// PeerLoadedFilter is sent when a peer acknowledged a filterload.
type PeerLoadedFilter struct {
	Peer PeerID
}

func (*Ready) event()               {}
func (*BlockConnected) event()      {}
func (*PeerNegotiated) event()      {}
func (*PeerDisconnected) event()    {}
func (*MerkleScanStarted) event()   {}
func (*MerkleScanStopped) event()   {}
func (*MatchedTransaction) event()  {}
func (*ReceivedMerkleBlock) event() {}
func (*PeerLoadedFilter) event()    {}

// NetworkConnectedNtfn notifies the network the coordinator runs on is
// reachable.
type NetworkConnectedNtfn struct {
	Net  wire.BitcoinNet
	Name string
}

// HeaderLoadedNtfn carries the tip height reported when the engine got
// ready.
type HeaderLoadedNtfn struct {
	Height uint64
}

// BlockConnectedNtfn carries the height of a newly connected block.
type BlockConnectedNtfn struct {
	Height uint64
}

// BlocksDownloadingNtfn is sent whenever the aggregate scanning state of the
// armed peers flips.
type BlocksDownloadingNtfn struct {
	Active bool
}

// PeerLoadedFilterNtfn is sent when a peer acknowledged a filter holding at
// least one item.
type PeerLoadedFilterNtfn struct {
	Peer PeerID
}

// MatchedTxNtfn is sent once per distinct matched transaction.  Only the
// most recent Config.MaxMatchedTxs ids are remembered, so a transaction
// matched again after its id was evicted is sent again.
type MatchedTxNtfn struct {
	Tx *btcutil.Tx
}

// ReceivedBlockNtfn carries the height of a received merkle block.
type ReceivedBlockNtfn struct {
	Peer   PeerID
	Height uint64
}

// FilterResetNtfn is sent after the filter has been reset.
type FilterResetNtfn struct{}

// Status is a point in time view of the coordinator state.
type Status struct {
	Tip        uint64
	Dirty      bool
	FilterSize int
	HashFuncs  uint32
	Known      []PeerID
	Armed      []PeerID
	Scanning   bool
}

// User commands handled by the event loop.  Every command carries a reply
// channel the outcome is sent on.
type (
	addItemMsg struct {
		data  string
		reply chan error
	}

	loadFilterMsg struct {
		reply chan error
	}

	resetFilterMsg struct {
		reply chan error
	}

	clearFilterMsg struct {
		reply chan error
	}

	rescanMsg struct {
		scanRange ScanRange
		reply     chan error
	}

	statusMsg struct {
		reply chan *Status
	}
)
