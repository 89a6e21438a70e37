// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "spvwatch"
	metricsSubsystem = "watcher"
)

// metrics contains the prometheus collectors updated by the coordinator.
type metrics struct {
	filtersLoaded prometheus.Counter
	rescans       prometheus.Counter
	matchedTxs    prometheus.Counter
	duplicateTxs  prometheus.Counter
	filterItems   prometheus.Gauge
	knownPeers    prometheus.Gauge
	armedPeers    prometheus.Gauge
	scanningPeers prometheus.Gauge
}

// newMetrics creates the coordinator collectors and registers them with the
// passed registerer, if any.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &metrics{
		filtersLoaded: counter("filters_loaded_total",
			"Number of filterload commands sent to the engine."),
		rescans: counter("rescans_total",
			"Number of rescan commands sent to the engine."),
		matchedTxs: counter("matched_txs_total",
			"Number of distinct matched transactions forwarded."),
		duplicateTxs: counter("duplicate_txs_total",
			"Number of matched transactions dropped as duplicates."),
		filterItems: gauge("filter_items",
			"Number of items in the current filter."),
		knownPeers: gauge("known_peers",
			"Number of connected peers."),
		armedPeers: gauge("armed_peers",
			"Number of peers holding the current filter."),
		scanningPeers: gauge("scanning",
			"Whether any armed peer is streaming merkle blocks."),
	}

	if reg == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{
		m.filtersLoaded, m.rescans, m.matchedTxs, m.duplicateTxs,
		m.filterItems, m.knownPeers, m.armedPeers, m.scanningPeers,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// observePeers refreshes the peer gauges from the tracker.
func (m *metrics) observePeers(t *PeerTracker) {
	m.knownPeers.Set(float64(len(t.known)))
	m.armedPeers.Set(float64(len(t.Armed())))
	if t.AnyScanning() {
		m.scanningPeers.Set(1)
	} else {
		m.scanningPeers.Set(0)
	}
}
