// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/btcsuite/spvwatch/watcher"
	"github.com/davecgh/go-spew/spew"
)

// engineQueueSize is the number of outbound commands buffered for the
// network engine.
const engineQueueSize = 64

// logEngineCommands logs every outbound command until quit is closed.  It
// stands in for a network engine when spvwatch replays recorded events.
func logEngineCommands(commands <-chan watcher.EngineCommand, quit <-chan struct{}) {
	for {
		select {
		case cmd := <-commands:
			logEngineCommand(cmd)

		case <-quit:
			return
		}
	}
}

// logEngineCommand logs a single outbound command.
func logEngineCommand(cmd watcher.EngineCommand) {
	switch c := cmd.(type) {
	case *watcher.LoadFilterCmd:
		spvwLog.Infof("filterload (%d bytes, %d hash funcs, tweak %d) "+
			"to %v", len(c.Filter.Filter), c.Filter.HashFuncs,
			c.Filter.Tweak, c.Peers)
		spvwLog.Tracef("%v", newLogClosure(func() string {
			return spew.Sdump(c.Filter)
		}))

	case *watcher.RescanCmd:
		spvwLog.Infof("getdata merkle blocks %d-%d from %v", c.From,
			c.To, c.Peers)

	case *watcher.QueryPeersCmd:
		spvwLog.Infof("query peers with services %v", c.Services)

	default:
		spvwLog.Warnf("Unknown engine command %T", cmd)
	}
}

// logClosure is used to provide a closure over expensive logging operations
// so don't have to be performed when the logging level doesn't warrant it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a string
// which itself provides a Stringer interface so that it can be used with the
// logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
