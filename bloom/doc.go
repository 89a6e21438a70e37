// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package bloom provides the BIP37 bloom filter used by thin clients to ask full
nodes for only the transactions they care about.

Filters are sized either directly, with a bitmap size in bytes and the number
of elements expected, or from a target false positive rate:

	f, err := bloom.NewForFPRate(10000, 0.01)

The number of hash functions is derived from the bitmap size as
ceil(m/n * ln 2) and is never less than one.  Every hash is a MurmurHash3 of
the element seeded with hashNum*0xfba4c795 + tweak, so the bitmap produced here
is bit for bit what a BIP37 peer computes for the same filterload message.

The random tweak is drawn from math/rand by default.  WithTweak and
WithTweakSource make construction deterministic for tests.
*/
package bloom
