// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom_test

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/spvwatch/bloom"
)

// This example demonstrates how to create a new bloom filter, add a transaction
// hash to it, and check if the filter matches the transaction.
func Example_newForFPRate() {
	// Create a new bloom filter intended to hold 10 elements with a 0.01%
	// false positive rate.
	filter, err := bloom.NewForFPRate(10, 0.0001)
	if err != nil {
		fmt.Println(err)
		return
	}

	// Create a transaction hash and add it to the filter.  This particular
	// transaction is the first transaction in block 310,000 of the main
	// bitcoin block chain.
	txHashStr := "fd611c56ca0d378cdcd16244b45c2ba9588da3adac367c4ef43e808b280b8a45"
	txHash, err := chainhash.NewHashFromStr(txHashStr)
	if err != nil {
		fmt.Println(err)
		return
	}
	filter.Add(txHash[:])

	// Show that the filter matches.
	fmt.Println("Filter Matches?:", filter.Matches(txHash[:]))
	fmt.Println("Bitmap bytes:", filter.Size())

	// Output:
	// Filter Matches?: true
	// Bitmap bytes: 24
}
