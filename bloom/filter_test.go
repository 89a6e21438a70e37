// Copyright (c) 2013, 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom_test

import (
	"encoding/hex"
	"math"
	"math/rand"
	"testing"

	btcbloom "github.com/btcsuite/btcd/btcutil/bloom"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/spvwatch/bloom"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestComputeBitmapSize checks the bitmap sizing against precomputed values.
func TestComputeBitmapSize(t *testing.T) {
	tests := []struct {
		elements uint32
		fprate   float64
		want     uint32
	}{
		{7, 0.001, 13},
		{10000, 0.01, 11982},
		{1024, 0.01, 1227},
		{100, 0.01, 120},
		{1, 0.5, 1},
	}

	for _, test := range tests {
		got, err := bloom.ComputeBitmapSize(test.elements, test.fprate)
		require.NoError(t, err)
		require.Equalf(t, test.want, got, "elements %d fprate %v",
			test.elements, test.fprate)
	}
}

// TestComputeBitmapSizeInvalid ensures out of range arguments are rejected.
func TestComputeBitmapSizeInvalid(t *testing.T) {
	tests := []struct {
		name     string
		elements uint32
		fprate   float64
	}{
		{"zero elements", 0, 0.01},
		{"zero rate", 10, 0},
		{"rate of one", 10, 1},
		{"negative rate", 10, -0.1},
		{"rate above one", 10, 1.5},
		{"nan rate", 10, math.NaN()},
	}

	for _, test := range tests {
		_, err := bloom.ComputeBitmapSize(test.elements, test.fprate)
		require.ErrorIs(t, err, bloom.ErrInvalidArgument, test.name)

		_, err = bloom.NewForFPRate(test.elements, test.fprate)
		require.ErrorIs(t, err, bloom.ErrInvalidArgument, test.name)
	}
}

// TestOptimalHashFuncs ensures the hash function count follows ceil(m/n ln2)
// and never drops below one.
func TestOptimalHashFuncs(t *testing.T) {
	tests := []struct {
		bits     uint64
		elements uint32
		want     uint32
	}{
		{8, 1000, 1},
		{1, math.MaxUint32, 1},
		{104, 7, 11},
		{95856, 10000, 7},
		{9816, 1024, 7},
		{24, 3, 6},
	}

	for _, test := range tests {
		got := bloom.OptimalHashFuncs(test.bits, test.elements)
		require.Equalf(t, test.want, got, "bits %d elements %d",
			test.bits, test.elements)
	}

	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.Uint64Range(8, 1<<32).Draw(t, "bits")
		elements := rapid.Uint32Range(1, math.MaxUint32).Draw(t, "elements")
		if bloom.OptimalHashFuncs(bits, elements) < 1 {
			t.Fatalf("zero hash functions for %d bits, %d elements",
				bits, elements)
		}
	})
}

// TestNew ensures a directly sized filter starts empty with the derived
// parameters.
func TestNew(t *testing.T) {
	_, err := bloom.New(0, 1)
	require.ErrorIs(t, err, bloom.ErrInvalidArgument)
	_, err = bloom.New(1, 0)
	require.ErrorIs(t, err, bloom.ErrInvalidArgument)

	f, err := bloom.New(13, 7, bloom.WithTweak(5))
	require.NoError(t, err)
	require.Equal(t, 13, f.Size())
	require.Equal(t, uint32(11), f.HashFuncs())
	require.Equal(t, uint32(5), f.Tweak())
	require.Equal(t, wire.BloomUpdateNone, f.Flags())
	require.True(t, f.IsEmpty())
	require.False(t, f.Matches([]byte{0x01}))

	msg := f.MsgFilterLoad()
	require.Len(t, msg.Filter, 13)
	require.Equal(t, uint32(11), msg.HashFuncs)
	require.Equal(t, uint32(5), msg.Tweak)
	require.Equal(t, wire.BloomUpdateNone, msg.Flags)
}

// TestTweakSource ensures filters built from the same tweak source are
// interchangeable.
func TestTweakSource(t *testing.T) {
	newSource := func() bloom.TweakSource {
		r := rand.New(rand.NewSource(37))
		return r.Uint32
	}

	a, err := bloom.NewForFPRate(7, 0.001, bloom.WithTweakSource(newSource()))
	require.NoError(t, err)
	b, err := bloom.NewForFPRate(7, 0.001, bloom.WithTweakSource(newSource()))
	require.NoError(t, err)

	for _, item := range [][]byte{{0x01}, {0x02, 0x03}, []byte("spv")} {
		a.Add(item)
		b.Add(item)
	}
	require.Equal(t, a.MsgFilterLoad(), b.MsgFilterLoad())
}

// TestFilterInsert ensures inserting data into the filter causes that data to
// be matched and the resulting bitmap is the BIP37 reference value.
func TestFilterInsert(t *testing.T) {
	tests := []struct {
		name  string
		tweak uint32
		want  string
	}{
		{"no tweak", 0, "614e9b"},
		{"tweak", 2147483649, "ce4299"},
	}

	items := []struct {
		hex    string
		insert bool
	}{
		{"99108ad8ed9bb6274d3980bab5a85c048f0950c8", true},
		{"19108ad8ed9bb6274d3980bab5a85c048f0950c8", false},
		{"b5a2c786d9ef4658287ced5914b37a1b4aa32eee", true},
		{"b9300670b4c5366e95b2699e8b18bc75e5f729c5", true},
	}

	for _, test := range tests {
		empty := wire.NewMsgFilterLoad(make([]byte, 3), 5, test.tweak,
			wire.BloomUpdateAll)
		f, err := bloom.LoadFilter(empty)
		require.NoError(t, err, test.name)

		for i, item := range items {
			data, err := hex.DecodeString(item.hex)
			require.NoError(t, err)
			if item.insert {
				f.Add(data)
			}
			require.Equalf(t, item.insert, f.Matches(data),
				"%s: item #%d", test.name, i)
		}

		msg := f.MsgFilterLoad()
		require.Equal(t, test.want, hex.EncodeToString(msg.Filter),
			test.name)
		require.Equal(t, uint32(5), msg.HashFuncs, test.name)
		require.Equal(t, test.tweak, msg.Tweak, test.name)
		require.Equal(t, wire.BloomUpdateAll, msg.Flags, test.name)

		// The caller's message must not have been touched.
		require.Equal(t, make([]byte, 3), empty.Filter, test.name)
	}
}

// TestFilterNoFalseNegatives ensures every inserted element is matched for
// the lifetime of the filter.
func TestFilterNoFalseNegatives(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		elements := rapid.Uint32Range(1, 200).Draw(t, "elements")
		fprate := rapid.Float64Range(0.0001, 0.5).Draw(t, "fprate")
		tweak := rapid.Uint32().Draw(t, "tweak")

		f, err := bloom.NewForFPRate(elements, fprate,
			bloom.WithTweak(tweak))
		if err != nil {
			t.Fatalf("unable to create filter: %v", err)
		}

		items := rapid.SliceOfN(
			rapid.SliceOfN(rapid.Byte(), 0, 64), 1, 50,
		).Draw(t, "items")
		for i, item := range items {
			f.Add(item)
			if !f.Matches(item) {
				t.Fatalf("item #%d not matched after insert", i)
			}
		}
		for i, item := range items {
			if !f.Matches(item) {
				t.Fatalf("item #%d lost after later inserts", i)
			}
		}
	})
}

// TestFilterFalsePositiveRate ensures the observed false positive rate of a
// full filter stays close to the rate it was sized for.
func TestFilterFalsePositiveRate(t *testing.T) {
	const (
		elements = 1000
		probes   = 10000
		fprate   = 0.01
	)

	r := rand.New(rand.NewSource(1))
	f, err := bloom.NewForFPRate(elements, fprate,
		bloom.WithTweak(r.Uint32()))
	require.NoError(t, err)

	// Inserted items and probes differ in their first byte so no probe can
	// be a true positive.
	item := make([]byte, 32)
	for i := 0; i < elements; i++ {
		r.Read(item)
		item[0] = 0x00
		f.Add(item)
	}

	var positives int
	for i := 0; i < probes; i++ {
		r.Read(item)
		item[0] = 0x01
		if f.Matches(item) {
			positives++
		}
	}

	observed := float64(positives) / probes
	require.LessOrEqualf(t, observed, 5*fprate,
		"observed false positive rate %v", observed)
}

// TestMsgFilterLoadSnapshot ensures the wire form does not change when data
// is added to the filter afterwards.
func TestMsgFilterLoadSnapshot(t *testing.T) {
	f, err := bloom.NewForFPRate(10, 0.01, bloom.WithTweak(1))
	require.NoError(t, err)

	before := f.MsgFilterLoad()
	f.Add([]byte("watched"))
	after := f.MsgFilterLoad()

	require.Equal(t, make([]byte, len(before.Filter)), before.Filter)
	require.NotEqual(t, before.Filter, after.Filter)

	// Mutating a snapshot must not leak into the filter either.
	after.Filter[0] ^= 0xff
	require.NotEqual(t, after.Filter, f.MsgFilterLoad().Filter)
}

// TestCompatibleWithBtcutil ensures a filter built here matches the same data
// once loaded by the btcutil bloom implementation peers use.
func TestCompatibleWithBtcutil(t *testing.T) {
	f, err := bloom.NewForFPRate(100, 0.001)
	require.NoError(t, err)

	items := [][]byte{
		{0x00},
		[]byte("hello"),
		make([]byte, 20),
		make([]byte, 32),
	}
	items[3][31] = 0x7f
	for _, item := range items {
		f.Add(item)
	}

	remote := btcbloom.LoadFilter(f.MsgFilterLoad())
	for i, item := range items {
		require.Truef(t, remote.Matches(item), "item #%d", i)
	}
}

// TestCheckWireLimits ensures filters peers would reject are reported.
func TestCheckWireLimits(t *testing.T) {
	tests := []struct {
		name     string
		size     uint32
		elements uint32
		ok       bool
	}{
		{"default", 11982, 10000, true},
		{"max size", wire.MaxFilterLoadFilterSize, 50000, true},
		{"too large", wire.MaxFilterLoadFilterSize + 1, 50000, false},
		{"too many hash funcs", 100, 1, false},
	}

	for _, test := range tests {
		f, err := bloom.New(test.size, test.elements)
		require.NoError(t, err, test.name)

		err = f.CheckWireLimits()
		if test.ok {
			require.NoError(t, err, test.name)
		} else {
			require.ErrorIs(t, err, bloom.ErrExceedsWireLimits,
				test.name)
		}
	}
}

// TestLoadFilterInvalid ensures empty filterload messages are rejected.
func TestLoadFilterInvalid(t *testing.T) {
	_, err := bloom.LoadFilter(nil)
	require.ErrorIs(t, err, bloom.ErrInvalidArgument)

	_, err = bloom.LoadFilter(&wire.MsgFilterLoad{HashFuncs: 1})
	require.ErrorIs(t, err, bloom.ErrInvalidArgument)
}
