// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ledger

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Transfers         prometheus.Counter
	RejectedTransfers prometheus.Counter
	MintedAmount      prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "ledger"

	return metrics{
		Transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "transfers",
			Help:      "Number of completed transfers.",
		}),
		RejectedTransfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "rejected_transfers",
			Help:      "Number of transfers refused by the recipient.",
		}),
		MintedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "minted_amount",
			Help:      "Total amount of wei minted by the faucet.",
		}),
	}
}

func (l *Ledger) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(l.metrics)
}
