// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsShutdownTimeout bounds how long in-flight scrapes may delay
// shutdown.
const metricsShutdownTimeout = 5 * time.Second

// newRegistry returns the registry holding the process and coordinator
// metrics.
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// metricsServer exposes a registry on /metrics.
type metricsServer struct {
	server *http.Server
}

func newMetricsServer(listen string, registry *prometheus.Registry) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry,
		promhttp.HandlerOpts{Registry: registry}))

	return &metricsServer{
		server: &http.Server{
			Addr:              listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves metrics in the background.  A failing listener requests a
// shutdown of the process.
func (s *metricsServer) Start() {
	spvwLog.Infof("Prometheus exporter started on %v/metrics",
		s.server.Addr)

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			spvwLog.Errorf("Metrics server failed: %v", err)
			requestShutdown()
		}
	}()
}

// Stop shuts the server down.
func (s *metricsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(),
		metricsShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
