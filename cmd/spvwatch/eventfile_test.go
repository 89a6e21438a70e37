// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/spvwatch/watcher"
	"github.com/stretchr/testify/require"
)

// serializedTx returns the hex encoding of a minimal transaction.
func serializedTx(t *testing.T) (string, *wire.MsgTx) {
	t.Helper()

	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(
		chaincfg.MainNetParams.GenesisHash, 0), nil, nil))
	msgTx.AddTxOut(wire.NewTxOut(1000, []byte{0x51}))

	var buf bytes.Buffer
	require.NoError(t, msgTx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes()), msgTx
}

func TestParseEventLine(t *testing.T) {
	txHex, msgTx := serializedTx(t)
	genesis := chaincfg.MainNetParams.GenesisHash

	tests := []struct {
		line  string
		check func(*testing.T, watcher.Event)
	}{
		{"ready 800000", func(t *testing.T, e watcher.Event) {
			require.Equal(t, uint64(800000), e.(*watcher.Ready).Tip)
		}},
		{"block 0 " + genesis.String(), func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.BlockConnected{
				Hash: *genesis, Height: 0,
			}, e)
		}},
		{"peer 10.0.0.1:8333", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.PeerNegotiated{
				Peer:     "10.0.0.1:8333",
				Services: defaultPeerServices,
			}, e)
		}},
		{"peer a 0x4", func(t *testing.T, e watcher.Event) {
			require.Equal(t, wire.SFNodeBloom,
				e.(*watcher.PeerNegotiated).Services)
		}},
		{"  gone a  ", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.PeerDisconnected{Peer: "a"}, e)
		}},
		{"scanstart a", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.MerkleScanStarted{Peer: "a"}, e)
		}},
		{"scanstop a", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.MerkleScanStopped{Peer: "a"}, e)
		}},
		{"loaded a", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.PeerLoadedFilter{Peer: "a"}, e)
		}},
		{"merkle a 42", func(t *testing.T, e watcher.Event) {
			require.Equal(t, &watcher.ReceivedMerkleBlock{
				Peer: "a", Height: 42,
			}, e)
		}},
		{"tx a " + txHex, func(t *testing.T, e watcher.Event) {
			matched := e.(*watcher.MatchedTransaction)
			require.Equal(t, watcher.PeerID("a"), matched.Peer)
			require.Equal(t, msgTx.TxHash(), *matched.Tx.Hash())
		}},
	}

	for _, test := range tests {
		line, err := parseEventLine(test.line)
		require.NoError(t, err, test.line)
		require.NotNil(t, line.event, test.line)
		test.check(t, line.event)
	}

	line, err := parseEventLine("wait 10ms")
	require.NoError(t, err)
	require.Nil(t, line.event)
	require.Equal(t, 10*time.Millisecond, line.delay)

	for _, skipped := range []string{"", "   ", "# comment", "#ready 1"} {
		line, err := parseEventLine(skipped)
		require.NoError(t, err, skipped)
		require.Nil(t, line, skipped)
	}
}

func TestParseEventLineErrors(t *testing.T) {
	invalid := []string{
		"explode a",
		"ready",
		"ready 1 2",
		"ready tip",
		"block -1",
		"block 1 nothash",
		"peer a bits",
		"tx a zz",
		"tx a 00",
		"merkle a",
		"wait forever",
	}

	for _, line := range invalid {
		_, err := parseEventLine(line)
		require.Error(t, err, line)
	}
}

func TestReplayLargeTransaction(t *testing.T) {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(
		chaincfg.MainNetParams.GenesisHash, 0), nil, nil))
	msgTx.AddTxOut(wire.NewTxOut(1, bytes.Repeat([]byte{0x6a}, 60000)))

	var buf bytes.Buffer
	require.NoError(t, msgTx.Serialize(&buf))
	line := "tx a " + hex.EncodeToString(buf.Bytes())
	require.Greater(t, len(line), 64*1024)

	events := make(chan watcher.Event, 1)
	err := replayEvents(strings.NewReader(line), events, make(chan struct{}))
	require.NoError(t, err)

	matched := (<-events).(*watcher.MatchedTransaction)
	require.Equal(t, msgTx.TxHash(), *matched.Tx.Hash())
}

func TestReplayEvents(t *testing.T) {
	input := strings.Join([]string{
		"# recorded session",
		"ready 100",
		"peer a",
		"wait 0s",
		"",
		"gone a",
	}, "\n")

	events := make(chan watcher.Event, 3)
	quit := make(chan struct{})
	require.NoError(t, replayEvents(strings.NewReader(input), events, quit))
	require.Len(t, events, 3)
	require.IsType(t, &watcher.Ready{}, <-events)
	require.IsType(t, &watcher.PeerNegotiated{}, <-events)
	require.IsType(t, &watcher.PeerDisconnected{}, <-events)

	err := replayEvents(strings.NewReader("ready 1\nbogus\n"), events, quit)
	require.ErrorContains(t, err, "line 2")
	<-events

	// A blocked replay returns once quit is closed.
	close(quit)
	blocked := make(chan watcher.Event)
	require.NoError(t, replayEvents(strings.NewReader("ready 1"), blocked,
		quit))
}
