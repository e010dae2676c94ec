// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/latentcollapse/hlx-core/pkg/log"
)

// serveMetrics starts a /metrics endpoint in the background for an
// external Prometheus to scrape. It is independent of the hlx batch
// socket itself — addr is typically a loopback host:port, never the
// CAS/dispatch listener.
func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server on %s: %s", addr, err.Error())
		}
	}()
}
