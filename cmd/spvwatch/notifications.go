// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"github.com/btcsuite/spvwatch/watcher"
)

// formatNotification returns the console line for a coordinator
// notification.
func formatNotification(ntfn interface{}) string {
	switch n := ntfn.(type) {
	case *watcher.NetworkConnectedNtfn:
		return fmt.Sprintf("connected to %s", n.Name)

	case *watcher.HeaderLoadedNtfn:
		return fmt.Sprintf("headers loaded, tip %d", n.Height)

	case *watcher.BlockConnectedNtfn:
		return fmt.Sprintf("block %d connected", n.Height)

	case *watcher.BlocksDownloadingNtfn:
		if n.Active {
			return "merkle block download started"
		}
		return "merkle block download finished"

	case *watcher.PeerLoadedFilterNtfn:
		return fmt.Sprintf("peer %s loaded the filter", n.Peer)

	case *watcher.MatchedTxNtfn:
		return fmt.Sprintf("matched transaction %v", n.Tx.Hash())

	case *watcher.ReceivedBlockNtfn:
		return fmt.Sprintf("merkle block %d from %s", n.Height, n.Peer)

	case *watcher.FilterResetNtfn:
		return "filter reset"

	default:
		return fmt.Sprintf("unknown notification %T", ntfn)
	}
}

// printNotifications writes every notification to w until quit is closed.
func printNotifications(w io.Writer, ntfns <-chan interface{}, quit <-chan struct{}) {
	for {
		select {
		case ntfn, ok := <-ntfns:
			if !ok {
				return
			}
			fmt.Fprintln(w, formatNotification(ntfn))

		case <-quit:
			return
		}
	}
}
