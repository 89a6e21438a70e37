// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/spvwatch/internal/log"
	"github.com/btcsuite/spvwatch/watcher"
)

// defaultPeerServices are the services assumed for a peer line that does not
// list any.
const defaultPeerServices = wire.SFNodeNetwork | wire.SFNodeBloom

// maxEventLineSize is the longest event line accepted.  It fits a tx line
// carrying the hex encoding of the largest possible transaction.
const maxEventLineSize = wire.MaxBlockPayload*2 + 1024

// eventArgs lists the number of arguments accepted by each event keyword.
var eventArgs = map[string][2]int{
	"ready":     {1, 1},
	"block":     {1, 2},
	"peer":      {1, 2},
	"gone":      {1, 1},
	"scanstart": {1, 1},
	"scanstop":  {1, 1},
	"tx":        {2, 2},
	"merkle":    {2, 2},
	"loaded":    {1, 1},
	"wait":      {1, 1},
}

// replayLine is a parsed line of an event file.  Lines without an event
// pause the replay for delay.
type replayLine struct {
	event watcher.Event
	delay time.Duration
}

// parseEventLine parses a single line of an event file.  Blank lines and
// lines starting with # yield nil.
//
// Lines have the following forms:
//
//	ready <tip height>
//	block <height> [hash]
//	peer <id> [service bits]
//	gone|scanstart|scanstop|loaded <id>
//	tx <id> <serialized tx hex>
//	merkle <id> <height>
//	wait <duration>
func parseEventLine(line string) (*replayLine, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil, nil
	}

	keyword, args := fields[0], fields[1:]
	bounds, ok := eventArgs[keyword]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", keyword)
	}
	if len(args) < bounds[0] || len(args) > bounds[1] {
		return nil, fmt.Errorf("event %q takes %d to %d arguments, got %d",
			keyword, bounds[0], bounds[1], len(args))
	}

	var event watcher.Event
	switch keyword {
	case "ready":
		tip, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tip height: %w", err)
		}
		event = &watcher.Ready{Tip: tip, Time: time.Now()}

	case "block":
		height, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid block height: %w", err)
		}
		block := &watcher.BlockConnected{Height: height}
		if len(args) > 1 {
			hash, err := chainhash.NewHashFromStr(args[1])
			if err != nil {
				return nil, fmt.Errorf("invalid block hash: %w", err)
			}
			block.Hash = *hash
		}
		event = block

	case "peer":
		services := defaultPeerServices
		if len(args) > 1 {
			bits, err := strconv.ParseUint(args[1], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid service bits: %w", err)
			}
			services = wire.ServiceFlag(bits)
		}
		event = &watcher.PeerNegotiated{
			Peer:     watcher.PeerID(args[0]),
			Services: services,
		}

	case "gone":
		event = &watcher.PeerDisconnected{Peer: watcher.PeerID(args[0])}

	case "scanstart":
		event = &watcher.MerkleScanStarted{Peer: watcher.PeerID(args[0])}

	case "scanstop":
		event = &watcher.MerkleScanStopped{Peer: watcher.PeerID(args[0])}

	case "loaded":
		event = &watcher.PeerLoadedFilter{Peer: watcher.PeerID(args[0])}

	case "tx":
		serialized, err := hex.DecodeString(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid transaction hex: %w", err)
		}
		tx, err := btcutil.NewTxFromBytes(serialized)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction: %w", err)
		}
		event = &watcher.MatchedTransaction{
			Peer: watcher.PeerID(args[0]),
			Tx:   tx,
		}

	case "merkle":
		height, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid block height: %w", err)
		}
		event = &watcher.ReceivedMerkleBlock{
			Peer:   watcher.PeerID(args[0]),
			Height: height,
		}

	case "wait":
		delay, err := time.ParseDuration(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid wait duration: %w", err)
		}
		return &replayLine{delay: delay}, nil
	}

	return &replayLine{event: event}, nil
}

// replayEvents reads network events from r and delivers them on events until
// the input is exhausted or quit is closed.  Malformed lines stop the replay.
func replayEvents(r io.Reader, events chan<- watcher.Event, quit <-chan struct{}) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxEventLineSize)
	var lineNum int
	for scanner.Scan() {
		lineNum++

		line, err := parseEventLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		if line == nil {
			continue
		}

		if line.event == nil {
			select {
			case <-time.After(line.delay):
			case <-quit:
				return nil
			}
			continue
		}

		select {
		case events <- line.event:
		case <-quit:
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	spvwLog.Infof("Event file replay complete (%d %s)", lineNum,
		log.PickNoun(uint64(lineNum), "line", "lines"))
	return nil
}
