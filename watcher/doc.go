// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package watcher implements the filter coordinator of a thin client.

The Coordinator owns a FilterState, which holds the BIP37 filter built from
user supplied addresses and hashes, and a PeerTracker, which records the peers
known to be connected, the peers holding the current filter (armed), and the
peers streaming merkle blocks.  Both are only touched by the coordinator
goroutine.  Network events arrive on Config.Events; user commands are issued
through the Coordinator methods and wait for the event loop to apply them.

Outbound filterload and rescan commands go through the Engine interface.
ChanEngine adapts it onto a channel for an engine running elsewhere.
Notifications for the presentation layer are read from Notifications.

Items either accumulate in one filter sized by Config.FilterElements, or,
with ReplaceItems, each added item replaces the filter with a fresh one
holding only that item.
*/
package watcher
