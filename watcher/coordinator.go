// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	"github.com/lightningnetwork/lnd/queue"
)

// notificationBufferSize is the number of notifications buffered in the
// presentation queue before it spills over into its overflow list.
const notificationBufferSize = 20

// Coordinator manages the filter of a thin client.  It applies user edits to
// the filter, distributes it to the connected peers, tracks which peers
// are scanning, requests rescans, and forwards matched data to the
// presentation layer.
//
// All state is owned by a single goroutine.  User commands are funneled into
// it through the exported methods, network events through Config.Events.
type Coordinator struct {
	started  int32
	shutdown int32

	cfg        Config
	filter     *FilterState
	peers      *PeerTracker
	matchedTxs lru.Cache
	tip        uint64
	metrics    *metrics

	ntfnQueue *queue.ConcurrentQueue
	msgChan   chan interface{}

	// runErr is the error that ended the event loop.  It is only written
	// by the event loop before done is closed.
	runErr error
	done   chan struct{}

	quit chan struct{}
	wg   sync.WaitGroup
}

// New returns a new Coordinator.  Use Start to begin processing events and
// commands.
func New(cfg *Config) (*Coordinator, error) {
	if cfg.Engine == nil {
		return nil, watcherError(ErrInvalidArgument,
			"no network engine configured", nil)
	}
	if cfg.Events == nil {
		return nil, watcherError(ErrInvalidArgument,
			"no network event channel configured", nil)
	}

	c := Coordinator{
		cfg:       *cfg,
		peers:     NewPeerTracker(),
		ntfnQueue: queue.NewConcurrentQueue(notificationBufferSize),
		msgChan:   make(chan interface{}),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
	if c.cfg.ChainParams == nil {
		c.cfg.ChainParams = &chaincfg.MainNetParams
	}
	if c.cfg.FilterElements == 0 {
		c.cfg.FilterElements = DefaultFilterElements
	}
	if c.cfg.FilterFPRate == 0 {
		c.cfg.FilterFPRate = DefaultFilterFPRate
	}
	if c.cfg.ItemFilterElements == 0 {
		c.cfg.ItemFilterElements = DefaultItemFilterElements
	}
	if c.cfg.MaxMatchedTxs == 0 {
		c.cfg.MaxMatchedTxs = DefaultMaxMatchedTxs
	}

	filter, err := NewFilterState(&FilterStateConfig{
		ChainParams:        c.cfg.ChainParams,
		Elements:           c.cfg.FilterElements,
		FPRate:             c.cfg.FilterFPRate,
		ItemFilterElements: c.cfg.ItemFilterElements,
		Policy:             c.cfg.ItemPolicy,
		TweakSource:        c.cfg.TweakSource,
	})
	if err != nil {
		return nil, err
	}
	c.filter = filter
	c.matchedTxs = lru.NewCache(c.cfg.MaxMatchedTxs)

	c.metrics, err = newMetrics(c.cfg.Registerer)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Start begins the event loop of the coordinator.
func (c *Coordinator) Start() {
	// Already started?
	if atomic.AddInt32(&c.started, 1) != 1 {
		return
	}

	log.Trace("Starting filter coordinator")
	c.ntfnQueue.Start()
	c.wg.Add(1)
	go c.eventHandler()
}

// Stop gracefully shuts down the coordinator by stopping the event loop and
// waiting for it to finish.
func (c *Coordinator) Stop() error {
	if atomic.AddInt32(&c.shutdown, 1) != 1 {
		log.Warnf("Filter coordinator is already in the process of " +
			"shutting down")
		return nil
	}

	log.Infof("Filter coordinator shutting down")
	close(c.quit)

	// Without an event loop nobody else closes done.  Marking the
	// coordinator started also keeps a later Start from running.
	if atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		close(c.done)
		return nil
	}

	c.wg.Wait()
	c.ntfnQueue.Stop()
	return nil
}

// WaitForShutdown blocks until the event loop ended and returns the error
// that ended it.  The error is nil when the loop ended through Stop.
func (c *Coordinator) WaitForShutdown() error {
	<-c.done
	return c.runErr
}

// Notifications returns the channel notifications for the presentation layer
// are delivered on.  Undelivered notifications are queued without bound so
// a slow reader never stalls the coordinator.
func (c *Coordinator) Notifications() <-chan interface{} {
	return c.ntfnQueue.ChanOut()
}

// eventHandler is the main handler for the coordinator.  It must be run as a
// goroutine.  Network events and user commands are processed on this single
// goroutine so the filter and peer state need no locking.  The select picks
// uniformly among ready channels, so neither source can starve the other.
func (c *Coordinator) eventHandler() {
out:
	for {
		select {
		case event, ok := <-c.cfg.Events:
			if !ok {
				c.runErr = watcherError(ErrChannelClosed,
					"network event channel closed", nil)
				log.Errorf("Filter coordinator stopping: %v",
					c.runErr)
				break out
			}
			c.handleEvent(event)

		case m := <-c.msgChan:
			c.handleCommand(m)

		case <-c.quit:
			break out
		}
	}

	close(c.done)
	c.wg.Done()
	log.Trace("Filter coordinator done")
}

// notify hands a notification to the presentation queue.
func (c *Coordinator) notify(ntfn interface{}) {
	select {
	case c.ntfnQueue.ChanIn() <- ntfn:
	case <-c.quit:
	}
}

// handleEvent applies an inbound network event.
func (c *Coordinator) handleEvent(event Event) {
	switch e := event.(type) {
	case *Ready:
		c.tip = e.Tip
		log.Infof("Network %s ready at height %d", c.cfg.ChainParams.Name,
			e.Tip)
		c.notify(&HeaderLoadedNtfn{Height: e.Tip})
		c.notify(&NetworkConnectedNtfn{
			Net:  c.cfg.ChainParams.Net,
			Name: c.cfg.ChainParams.Name,
		})

		// Learn about peers that connected before we were listening.
		err := c.cfg.Engine.QueryPeers(wire.SFNodeBloom)
		if err != nil {
			log.Warnf("Unable to query bloom peers: %v", err)
		}

	case *BlockConnected:
		if e.Height > c.tip {
			c.tip = e.Height
		}
		c.notify(&BlockConnectedNtfn{Height: e.Height})

	case *PeerNegotiated:
		if c.peers.Register(e.Peer) {
			log.Debugf("New peer %s (services %v)", e.Peer, e.Services)
		}
		c.metrics.observePeers(c.peers)

	case *PeerDisconnected:
		if c.peers.Deregister(e.Peer) {
			c.notify(&BlocksDownloadingNtfn{
				Active: c.peers.AnyScanning(),
			})
		}
		log.Debugf("Lost peer %s", e.Peer)
		c.metrics.observePeers(c.peers)

	case *MerkleScanStarted:
		c.markScanning(e.Peer, true)

	case *MerkleScanStopped:
		c.markScanning(e.Peer, false)

	case *MatchedTransaction:
		if e.Tx == nil {
			log.Warnf("Matched transaction from %s without data",
				e.Peer)
			break
		}
		txHash := *e.Tx.Hash()
		if c.matchedTxs.Contains(txHash) {
			log.Tracef("Dropping duplicate match %v from %s", txHash,
				e.Peer)
			c.metrics.duplicateTxs.Inc()
			break
		}
		c.matchedTxs.Add(txHash)
		c.metrics.matchedTxs.Inc()
		log.Infof("Matched transaction %v from %s", txHash, e.Peer)
		c.notify(&MatchedTxNtfn{Tx: e.Tx})

	case *ReceivedMerkleBlock:
		c.notify(&ReceivedBlockNtfn{Peer: e.Peer, Height: e.Height})

	case *PeerLoadedFilter:
		// An empty filter is not worth reporting; peers acknowledge
		// those after every reset.
		if c.filter.IsDirty() {
			c.notify(&PeerLoadedFilterNtfn{Peer: e.Peer})
		}

	default:
		log.Warnf("Unknown network event type %T", event)
	}
}

// markScanning updates the scanning flag of a peer and notifies the
// presentation layer when the aggregate state flipped.
func (c *Coordinator) markScanning(peer PeerID, active bool) {
	if !c.peers.MarkScanning(peer, active) {
		return
	}

	log.Debugf("Merkle block download active: %v", c.peers.AnyScanning())
	c.notify(&BlocksDownloadingNtfn{Active: c.peers.AnyScanning()})
	c.metrics.observePeers(c.peers)
}

// handleCommand applies a user command and replies with its outcome.
func (c *Coordinator) handleCommand(m interface{}) {
	switch msg := m.(type) {
	case *addItemMsg:
		err := c.filter.AddItem(msg.data)
		if err == nil {
			// Peers keep scanning with their old filter until the
			// next load reaches them.
			c.peers.Invalidate()
			c.metrics.filterItems.Set(float64(c.filter.Items()))
			c.metrics.observePeers(c.peers)
		}
		msg.reply <- err

	case *loadFilterMsg:
		msg.reply <- c.loadFilter(c.peers.Unarmed())

	case *resetFilterMsg:
		c.resetFilter()
		msg.reply <- nil

	case *clearFilterMsg:
		c.resetFilter()
		msg.reply <- c.loadFilter(c.peers.Known())

	case *rescanMsg:
		msg.reply <- c.requestRescan(msg.scanRange)

	case *statusMsg:
		msg.reply <- &Status{
			Tip:        c.tip,
			Dirty:      c.filter.IsDirty(),
			FilterSize: c.filter.filter.Size(),
			HashFuncs:  c.filter.filter.HashFuncs(),
			Known:      c.peers.Known(),
			Armed:      c.peers.Armed(),
			Scanning:   c.peers.AnyScanning(),
		}

	default:
		log.Warnf("Unknown command type %T", m)
	}
}

// loadFilter sends a snapshot of the current filter to the passed peers and
// arms them once the engine accepted the command.
func (c *Coordinator) loadFilter(peers []PeerID) error {
	if len(peers) == 0 {
		log.Debugf("No peers to load the filter into")
		return nil
	}

	snapshot := c.filter.Snapshot()
	if err := c.cfg.Engine.LoadFilter(snapshot, peers); err != nil {
		return engineError("filterload", err)
	}

	if c.peers.Arm(peers) {
		c.notify(&BlocksDownloadingNtfn{Active: c.peers.AnyScanning()})
	}
	c.metrics.filtersLoaded.Inc()
	c.metrics.observePeers(c.peers)

	log.Infof("Loaded %d byte filter with %d items into %d peers",
		len(snapshot.Filter), c.filter.Items(), len(peers))
	return nil
}

// resetFilter installs an empty filter and forgets which peers held the old
// one.
func (c *Coordinator) resetFilter() {
	c.filter.Reset()
	if c.peers.Clear() {
		c.notify(&BlocksDownloadingNtfn{Active: false})
	}
	c.metrics.filterItems.Set(0)
	c.metrics.observePeers(c.peers)
	c.notify(&FilterResetNtfn{})

	log.Infof("Filter reset")
}

// requestRescan asks the armed peers for the merkle blocks of the range.
func (c *Coordinator) requestRescan(r ScanRange) error {
	r = r.normalize()

	peers := c.peers.Armed()
	if len(peers) == 0 {
		log.Warnf("Ignoring rescan of blocks %d-%d: no peer holds "+
			"the filter", r.Begin, r.End)
		return nil
	}

	err := c.cfg.Engine.RequestRescan(r.Begin, r.End, peers)
	if err != nil {
		return engineError("rescan", err)
	}
	c.metrics.rescans.Inc()

	log.Infof("Requested rescan of blocks %d-%d from %d peers", r.Begin,
		r.End, len(peers))
	return nil
}

// engineError classifies a failed engine command.  Errors already carrying
// an ErrorCode are passed through.
func engineError(op string, err error) error {
	var werr Error
	if errors.As(err, &werr) {
		return err
	}
	return watcherError(ErrUpstreamCommandFailed, op+" rejected", err)
}

// sendCommand hands a command to the event loop and waits for its reply.
func sendCommand[T any](c *Coordinator, msg interface{}, reply chan T) (T, error) {
	var zero T
	if atomic.LoadInt32(&c.started) == 0 {
		return zero, watcherError(ErrShuttingDown,
			"filter coordinator is not running", nil)
	}

	select {
	case c.msgChan <- msg:
	case <-c.done:
		return zero, watcherError(ErrShuttingDown,
			"filter coordinator is not running", nil)
	}

	select {
	case r := <-reply:
		return r, nil
	case <-c.done:
		return zero, watcherError(ErrShuttingDown,
			"filter coordinator is not running", nil)
	}
}

// runCommand hands a command replying with an error to the event loop.
func (c *Coordinator) runCommand(msg interface{}, reply chan error) error {
	err, sendErr := sendCommand(c, msg, reply)
	if sendErr != nil {
		return sendErr
	}
	return err
}

// AddFilterItem decodes the passed encoded address or hex string and adds it
// to the filter.  A malformed item returns ErrDecode and leaves the filter
// untouched.
func (c *Coordinator) AddFilterItem(data string) error {
	reply := make(chan error, 1)
	return c.runCommand(&addItemMsg{data: data, reply: reply}, reply)
}

// SendLoadFilter sends the current filter to every known peer that does not
// hold it yet.
func (c *Coordinator) SendLoadFilter() error {
	reply := make(chan error, 1)
	return c.runCommand(&loadFilterMsg{reply: reply}, reply)
}

// ResetFilter installs an empty filter.  Peers keep their old filter until
// SendLoadFilter is called.
func (c *Coordinator) ResetFilter() error {
	reply := make(chan error, 1)
	return c.runCommand(&resetFilterMsg{reply: reply}, reply)
}

// ClearFilterAndPeers resets the filter and immediately loads the empty
// filter into every known peer.
func (c *Coordinator) ClearFilterAndPeers() error {
	reply := make(chan error, 1)
	return c.runCommand(&clearFilterMsg{reply: reply}, reply)
}

// RequestBlocks asks the peers holding the filter for the merkle blocks in
// the inclusive range [begin, end].  An end before begin is raised to begin.
func (c *Coordinator) RequestBlocks(begin, end uint64) error {
	reply := make(chan error, 1)
	msg := &rescanMsg{
		scanRange: ScanRange{Begin: begin, End: end},
		reply:     reply,
	}
	return c.runCommand(msg, reply)
}

// Status returns a snapshot of the coordinator state.
func (c *Coordinator) Status() (*Status, error) {
	reply := make(chan *Status, 1)
	return sendCommand(c, &statusMsg{reply: reply}, reply)
}
