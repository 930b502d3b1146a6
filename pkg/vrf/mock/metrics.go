// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mock

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	SubscriptionsCreated prometheus.Counter
	RequestsReceived     prometheus.Counter
	RequestsFulfilled    prometheus.Counter
	CallbackErrors       prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "vrf_coordinator"

	return metrics{
		SubscriptionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "subscriptions_created",
			Help:      "Number of subscriptions created.",
		}),
		RequestsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "requests_received",
			Help:      "Number of randomness requests accepted.",
		}),
		RequestsFulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "requests_fulfilled",
			Help:      "Number of randomness requests fulfilled.",
		}),
		CallbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "callback_errors",
			Help:      "Number of fulfilments rejected by the consumer.",
		}),
	}
}

func (c *Coordinator) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(c.metrics)
}
