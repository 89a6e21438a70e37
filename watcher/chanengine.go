// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"github.com/btcsuite/btcd/wire"
)

// EngineCommand is an outbound command delivered by a ChanEngine.
type EngineCommand interface {
	engineCommand()
}

// LoadFilterCmd asks the engine to send a filterload message to the peers.
type LoadFilterCmd struct {
	Filter *wire.MsgFilterLoad
	Peers  []PeerID
}

// RescanCmd asks the engine to fetch the merkle blocks of the inclusive
// height range from the peers.
type RescanCmd struct {
	From  uint64
	To    uint64
	Peers []PeerID
}

// QueryPeersCmd asks the engine to announce the connected peers advertising
// the services.
type QueryPeersCmd struct {
	Services wire.ServiceFlag
}

func (*LoadFilterCmd) engineCommand() {}
func (*RescanCmd) engineCommand()     {}
func (*QueryPeersCmd) engineCommand() {}

// ChanEngine is an Engine that delivers every command on a channel read by
// the network engine.  Sends never block: a full channel is reported as
// ErrUpstreamCommandFailed and a closed quit channel as ErrChannelClosed, so
// the channel should be buffered.
type ChanEngine struct {
	commands chan<- EngineCommand
	quit     <-chan struct{}
}

// A compile-time check to ensure ChanEngine satisfies the Engine interface.
var _ Engine = (*ChanEngine)(nil)

// NewChanEngine returns a ChanEngine sending on commands until quit is
// closed.
func NewChanEngine(commands chan<- EngineCommand, quit <-chan struct{}) *ChanEngine {
	return &ChanEngine{
		commands: commands,
		quit:     quit,
	}
}

// send delivers the command without blocking.
func (e *ChanEngine) send(cmd EngineCommand) error {
	// Check quit first since select picks randomly among ready cases.
	select {
	case <-e.quit:
		return watcherError(ErrChannelClosed,
			"engine command channel closed", nil)
	default:
	}

	select {
	case e.commands <- cmd:
		return nil
	default:
		return watcherError(ErrUpstreamCommandFailed,
			"engine command queue is full", nil)
	}
}

// LoadFilter sends a LoadFilterCmd.
func (e *ChanEngine) LoadFilter(filter *wire.MsgFilterLoad, peers []PeerID) error {
	return e.send(&LoadFilterCmd{Filter: filter, Peers: peers})
}

// RequestRescan sends a RescanCmd.
func (e *ChanEngine) RequestRescan(from, to uint64, peers []PeerID) error {
	return e.send(&RescanCmd{From: from, To: to, Peers: peers})
}

// QueryPeers sends a QueryPeersCmd.
func (e *ChanEngine) QueryPeers(services wire.ServiceFlag) error {
	return e.send(&QueryPeersCmd{Services: services})
}
