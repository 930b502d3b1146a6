// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"github.com/ethersphere/raffle"
	"github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type nodeMetrics struct {
	// StartupDuration measures the time in seconds from start until the
	// api is served
	StartupDuration prometheus.Histogram
	Info            prometheus.Gauge
}

func newMetrics(network string) nodeMetrics {
	subsystem := "node"

	return nodeMetrics{
		StartupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "startup_duration_seconds",
				Help:      "Duration in seconds for the node to start.",
			},
		),
		Info: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "info",
			Help:      "Raffle node information.",
			ConstLabels: prometheus.Labels{
				"version": raffle.Version,
				"network": network,
			},
		}),
	}
}

func (m nodeMetrics) Metrics() []prometheus.Collector {
	return metrics.PrometheusCollectorsFromFields(m)
}
