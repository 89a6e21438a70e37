// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/spvwatch/bloom"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultFilterElements is the number of elements the default filter
	// is sized for.
	DefaultFilterElements = 10000

	// DefaultFilterFPRate is the false positive rate of the default filter.
	DefaultFilterFPRate = 0.01

	// DefaultItemFilterElements is the number of elements the filter built
	// for a single added item is sized for under ReplaceItems.
	DefaultItemFilterElements = 1024

	// DefaultMaxMatchedTxs is the number of matched transaction ids
	// remembered for deduplication.
	DefaultMaxMatchedTxs = 100000
)

// PeerID identifies a connected peer, typically by its network address.
type PeerID string

// ItemPolicy selects what happens to the current filter when an item is
// added.
type ItemPolicy uint8

const (
	// AccumulateItems adds every item to the current filter, so a filter
	// matches everything added since the last reset.
	AccumulateItems ItemPolicy = iota

	// ReplaceItems installs a fresh filter holding only the newly added
	// item, discarding everything added before.
	ReplaceItems
)

// String returns the ItemPolicy in human-readable form.
func (p ItemPolicy) String() string {
	switch p {
	case AccumulateItems:
		return "accumulate"
	case ReplaceItems:
		return "replace"
	}
	return "unknown"
}

// Engine is the outbound command boundary to the network engine which owns
// the peer connections.  Implementations must not block: commands are fire
// and forget, and their outcome is reported back through events.
type Engine interface {
	// LoadFilter sends a filterload message to each of the passed peers.
	LoadFilter(filter *wire.MsgFilterLoad, peers []PeerID) error

	// RequestRescan asks the passed peers for the merkle blocks in the
	// inclusive height range [from, to].
	RequestRescan(from, to uint64, peers []PeerID) error

	// QueryPeers asks the engine to announce every connected peer that
	// advertises the passed services with a PeerNegotiated event.
	QueryPeers(services wire.ServiceFlag) error
}

// Config is a configuration struct used to initialize a new Coordinator.
type Config struct {
	// ChainParams identifies the network addresses are decoded for.
	ChainParams *chaincfg.Params

	// Engine receives outbound filter and rescan commands.
	Engine Engine

	// Events delivers inbound network events.  The coordinator stops with
	// ErrChannelClosed when it is closed.
	Events <-chan Event

	// FilterElements and FilterFPRate size the default filter installed
	// on start and after every reset.
	FilterElements uint32
	FilterFPRate   float64

	// ItemFilterElements sizes the per item filter used by ReplaceItems.
	ItemFilterElements uint32

	// ItemPolicy selects between accumulating and replacing items.
	ItemPolicy ItemPolicy

	// MaxMatchedTxs bounds the number of matched transaction ids kept for
	// deduplication.
	MaxMatchedTxs uint

	// TweakSource, when set, provides the tweak of every new filter.
	TweakSource bloom.TweakSource

	// Registerer, when set, receives the coordinator metrics.
	Registerer prometheus.Registerer
}

// ScanRange is an inclusive range of block heights to rescan.
type ScanRange struct {
	Begin uint64
	End   uint64
}

// normalize returns the range with End raised to Begin when it lies before
// it.
func (r ScanRange) normalize() ScanRange {
	if r.End < r.Begin {
		r.End = r.Begin
	}
	return r
}
