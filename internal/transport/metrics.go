// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the per-process Prometheus collectors for the
// transport/dispatch hot path (SPEC_FULL.md §4.7 expansion). The
// teacher links prometheus/client_golang as a query client against an
// external Prometheus server (internal/metricdata/prometheus.go);
// here the same library plays its more usual role of instrumenting
// this process for an external Prometheus to scrape.
type metrics struct {
	batchesTotal    *prometheus.CounterVec
	batchLatency    prometheus.Histogram
	connectionsOpen prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hlx",
			Subsystem: "transport",
			Name:      "batches_total",
			Help:      "Batches received, partitioned by outcome.",
		}, []string{"outcome"}),
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hlx",
			Subsystem: "transport",
			Name:      "batch_latency_seconds",
			Help:      "Wall-clock time spent dispatching one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		connectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hlx",
			Subsystem: "transport",
			Name:      "connections_open",
			Help:      "Currently open client connections.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.batchesTotal, m.batchLatency, m.connectionsOpen)
	}
	return m
}
