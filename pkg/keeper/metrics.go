// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keeper

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Checks    prometheus.Counter
	Performed prometheus.Counter
	Resets    prometheus.Counter
	Errors    prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "keeper"

	return metrics{
		Checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "checks",
			Help:      "Number of upkeep checks.",
		}),
		Performed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "performed",
			Help:      "Number of performed upkeeps.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "resets",
			Help:      "Number of randomness requests abandoned after the timeout.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "errors",
			Help:      "Number of failed upkeep checks.",
		}),
	}
}

func (k *Keeper) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(k.metrics)
}
