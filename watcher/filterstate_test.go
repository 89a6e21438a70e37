// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

const (
	// genesisAddr is the address paid by the main network genesis block.
	genesisAddr     = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	genesisAddrHash = "62e907b15cbf27d5425399ebf6f0fb50ebb88f18"

	// segwitAddr is the BIP173 P2WPKH example address.
	segwitAddr    = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	segwitProgram = "751e76e8199196d454941c45d1b3a323f1433bd6"

	// testTxid is the first transaction in block 310,000 of the main
	// network in display order.
	testTxid = "fd611c56ca0d378cdcd16244b45c2ba9588da3adac367c4ef43e808b280b8a45"
)

func fixedTweak() uint32 {
	return 0xdeadbeef
}

func newTestFilterState(t *testing.T, policy ItemPolicy) *FilterState {
	t.Helper()

	s, err := NewFilterState(&FilterStateConfig{
		ChainParams:        &chaincfg.MainNetParams,
		Elements:           DefaultFilterElements,
		FPRate:             DefaultFilterFPRate,
		ItemFilterElements: DefaultItemFilterElements,
		Policy:             policy,
		TweakSource:        fixedTweak,
	})
	require.NoError(t, err)
	return s
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()

	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestDecodeItem ensures addresses, hashes and raw hex decode to the bytes
// peers match against.
func TestDecodeItem(t *testing.T) {
	txHash, err := chainhash.NewHashFromStr(testTxid)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want []byte
	}{
		{"p2pkh address", genesisAddr, mustDecodeHex(t, genesisAddrHash)},
		{"p2wpkh address", segwitAddr, mustDecodeHex(t, segwitProgram)},
		{"padded address", "  " + genesisAddr + "\n",
			mustDecodeHex(t, genesisAddrHash)},
		{"txid reversed", testTxid, txHash[:]},
		{"raw hex", "04ffff001d", mustDecodeHex(t, "04ffff001d")},
		{"hash160 hex", genesisAddrHash, mustDecodeHex(t, genesisAddrHash)},
	}

	for _, test := range tests {
		got, err := decodeItem(test.raw, &chaincfg.MainNetParams)
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, got, test.name)
	}
}

// TestDecodeItemErrors ensures malformed items are reported as ErrDecode.
func TestDecodeItemErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"odd hex", "abc"},
		{"not hex", "zz"},
		{"bad checksum", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb"},
		{"wrong network", "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"},
	}

	for _, test := range tests {
		_, err := decodeItem(test.raw, &chaincfg.MainNetParams)
		require.ErrorIs(t, err, ErrDecode, test.name)
	}
}

// TestFilterStateAccumulate ensures items accumulate in the default filter.
func TestFilterStateAccumulate(t *testing.T) {
	s := newTestFilterState(t, AccumulateItems)
	require.False(t, s.IsDirty())

	require.NoError(t, s.AddItem(genesisAddr))
	require.NoError(t, s.AddItem(testTxid))
	require.True(t, s.IsDirty())
	require.Equal(t, 2, s.Items())

	txHash, err := chainhash.NewHashFromStr(testTxid)
	require.NoError(t, err)
	require.True(t, s.Matches(mustDecodeHex(t, genesisAddrHash)))
	require.True(t, s.Matches(txHash[:]))

	snapshot := s.Snapshot()
	require.Len(t, snapshot.Filter, 11982)
	require.Equal(t, uint32(7), snapshot.HashFuncs)
	require.Equal(t, fixedTweak(), snapshot.Tweak)
}

// TestFilterStateReplace ensures every added item replaces the filter.
func TestFilterStateReplace(t *testing.T) {
	s := newTestFilterState(t, ReplaceItems)

	require.NoError(t, s.AddItem(genesisAddr))
	first := s.Snapshot()
	require.Len(t, first.Filter, 1227)

	require.NoError(t, s.AddItem(segwitAddr))
	require.Equal(t, 1, s.Items())
	require.True(t, s.Matches(mustDecodeHex(t, segwitProgram)))
	require.False(t, s.Matches(mustDecodeHex(t, genesisAddrHash)))
}

// TestFilterStateDecodeFailureKeepsFilter ensures a malformed item leaves the
// current filter untouched.
func TestFilterStateDecodeFailureKeepsFilter(t *testing.T) {
	for _, policy := range []ItemPolicy{AccumulateItems, ReplaceItems} {
		s := newTestFilterState(t, policy)
		require.NoError(t, s.AddItem(genesisAddr))
		before := s.Snapshot()

		err := s.AddItem("not an item")
		require.ErrorIs(t, err, ErrDecode, policy.String())
		require.Equal(t, before, s.Snapshot(), policy.String())
		require.Equal(t, 1, s.Items(), policy.String())
		require.True(t, s.IsDirty(), policy.String())
	}
}

// TestFilterStateReset ensures a reset installs an empty default filter.
func TestFilterStateReset(t *testing.T) {
	s := newTestFilterState(t, ReplaceItems)
	require.NoError(t, s.AddItem(genesisAddr))

	s.Reset()
	require.False(t, s.IsDirty())
	require.Equal(t, 0, s.Items())

	snapshot := s.Snapshot()
	require.Len(t, snapshot.Filter, 11982)
	require.Equal(t, make([]byte, 11982), snapshot.Filter)
}

// TestFilterStateSnapshotIsolation ensures snapshots do not observe later
// edits.
func TestFilterStateSnapshotIsolation(t *testing.T) {
	s := newTestFilterState(t, AccumulateItems)
	snapshot := s.Snapshot()

	require.NoError(t, s.AddItem(genesisAddr))
	require.Equal(t, make([]byte, len(snapshot.Filter)), snapshot.Filter)
}

// TestNewFilterStateInvalid ensures unusable sizes are rejected up front.
func TestNewFilterStateInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  FilterStateConfig
	}{
		{"zero elements", FilterStateConfig{FPRate: 0.01}},
		{"bad rate", FilterStateConfig{Elements: 10, FPRate: 2}},
		{"too large", FilterStateConfig{Elements: 1000000, FPRate: 0.0001}},
		{"bad item filter", FilterStateConfig{
			Elements: 10, FPRate: 0.01, Policy: ReplaceItems,
		}},
	}

	for _, test := range tests {
		_, err := NewFilterState(&test.cfg)
		require.ErrorIs(t, err, ErrInvalidArgument, test.name)
	}
}
