// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/spvwatch/bloom"
	"github.com/davecgh/go-spew/spew"
)

// FilterStateConfig holds the parameters of the filters a FilterState
// builds.
type FilterStateConfig struct {
	ChainParams        *chaincfg.Params
	Elements           uint32
	FPRate             float64
	ItemFilterElements uint32
	Policy             ItemPolicy
	TweakSource        bloom.TweakSource
}

// FilterState owns the filter a thin client loads into its peers.
//
// FilterState is not safe for concurrent access.  The coordinator is its only
// user; the snapshots it hands out are independent copies.
type FilterState struct {
	cfg    FilterStateConfig
	filter *bloom.Filter
	items  int
	dirty  bool
}

// NewFilterState returns a FilterState holding an empty default filter.  It
// fails with ErrInvalidArgument when the configured sizes do not produce
// filters peers accept.
func NewFilterState(cfg *FilterStateConfig) (*FilterState, error) {
	s := &FilterState{cfg: *cfg}
	if s.cfg.ChainParams == nil {
		s.cfg.ChainParams = &chaincfg.MainNetParams
	}

	// Build one filter of each kind up front so later resets and adds can
	// not fail on sizing.
	filter, err := s.newFilter(s.cfg.Elements)
	if err != nil {
		return nil, err
	}
	if s.cfg.Policy == ReplaceItems {
		if _, err := s.newFilter(s.cfg.ItemFilterElements); err != nil {
			return nil, err
		}
	}
	s.filter = filter

	return s, nil
}

// newFilter returns an empty filter for the given number of elements at the
// configured false positive rate.
func (s *FilterState) newFilter(elements uint32) (*bloom.Filter, error) {
	var opts []bloom.Option
	if s.cfg.TweakSource != nil {
		opts = append(opts, bloom.WithTweakSource(s.cfg.TweakSource))
	}

	filter, err := bloom.NewForFPRate(elements, s.cfg.FPRate, opts...)
	if err != nil {
		return nil, watcherError(ErrInvalidArgument,
			"unable to size filter", err)
	}
	if err := filter.CheckWireLimits(); err != nil {
		return nil, watcherError(ErrInvalidArgument,
			"unable to size filter", err)
	}
	return filter, nil
}

// decodeItem turns a user supplied filter item into the bytes peers match
// against.  Encoded addresses yield their script hash or key hash.  Any
// other input must be hex; 32 byte values are hashes displayed in reverse
// byte order and are flipped back to wire order.
func decodeItem(raw string, params *chaincfg.Params) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, watcherError(ErrDecode, "empty filter item", nil)
	}

	if addr, err := btcutil.DecodeAddress(raw, params); err == nil {
		return addr.ScriptAddress(), nil
	}

	data, err := hex.DecodeString(raw)
	if err != nil {
		str := fmt.Sprintf("filter item %q is neither a %s address "+
			"nor hex", raw, params.Name)
		return nil, watcherError(ErrDecode, str, err)
	}

	if len(data) == chainhash.HashSize {
		for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
			data[i], data[j] = data[j], data[i]
		}
	}
	return data, nil
}

// AddItem decodes the passed item and adds it to the filter according to the
// configured policy.  The filter is left untouched when decoding fails.
func (s *FilterState) AddItem(raw string) error {
	data, err := decodeItem(raw, s.cfg.ChainParams)
	if err != nil {
		return err
	}

	switch s.cfg.Policy {
	case ReplaceItems:
		filter, err := s.newFilter(s.cfg.ItemFilterElements)
		if err != nil {
			return err
		}
		filter.Add(data)
		s.filter = filter
		s.items = 1

	default:
		s.filter.Add(data)
		s.items++
	}
	s.dirty = true

	log.Debugf("Added filter item %x (%d in filter, policy %v)", data,
		s.items, s.cfg.Policy)
	return nil
}

// Reset installs an empty default filter.
func (s *FilterState) Reset() {
	filter, err := s.newFilter(s.cfg.Elements)
	if err != nil {
		// The default filter was built successfully by NewFilterState
		// with the same parameters.
		panic(fmt.Sprintf("unable to rebuild default filter: %v", err))
	}

	s.filter = filter
	s.items = 0
	s.dirty = false
}

// Snapshot returns the wire form of the current filter.  The message is a
// copy and may be sent to any number of peers.
func (s *FilterState) Snapshot() *wire.MsgFilterLoad {
	msg := s.filter.MsgFilterLoad()
	log.Tracef("Filter snapshot: %v", newLogClosure(func() string {
		return spew.Sdump(msg)
	}))
	return msg
}

// IsDirty returns true once an item was added since the last reset.
func (s *FilterState) IsDirty() bool {
	return s.dirty
}

// Items returns the number of items the current filter holds.
func (s *FilterState) Items() int {
	return s.items
}

// Matches returns true if the current filter might contain the passed data.
func (s *FilterState) Matches(data []byte) bool {
	return s.filter.Matches(data)
}
