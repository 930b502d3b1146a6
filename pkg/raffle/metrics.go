// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package raffle

import (
	m "github.com/ethersphere/raffle/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Entries          prometheus.Counter
	EntriesRejected  prometheus.Counter
	UpkeepsPerformed prometheus.Counter
	UpkeepsRejected  prometheus.Counter
	WinnersPicked    prometheus.Counter
	TransferFailures prometheus.Counter
	Resets           prometheus.Counter
	Players          prometheus.Gauge
	Calculating      prometheus.Gauge
	Round            prometheus.Gauge
}

func newMetrics() metrics {
	subsystem := "raffle"

	return metrics{
		Entries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "entries",
			Help:      "Number of accepted entries.",
		}),
		EntriesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "entries_rejected",
			Help:      "Number of rejected entries.",
		}),
		UpkeepsPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "upkeeps_performed",
			Help:      "Number of rounds closed by an upkeep.",
		}),
		UpkeepsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "upkeeps_rejected",
			Help:      "Number of upkeep calls that were not needed or failed.",
		}),
		WinnersPicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "winners_picked",
			Help:      "Number of rounds paid out.",
		}),
		TransferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "transfer_failures",
			Help:      "Number of prize payouts refused by the winner.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "resets",
			Help:      "Number of abandoned randomness requests.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "players",
			Help:      "Number of players in the current round.",
		}),
		Calculating: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calculating",
			Help:      "Set to 1 while a winner is being picked.",
		}),
		Round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "round",
			Help:      "Number of the current round.",
		}),
	}
}

func (mt metrics) observe(s *snapshot) {
	mt.Players.Set(float64(len(s.Players)))
	mt.Round.Set(float64(s.Round))
	if s.State == StateCalculating {
		mt.Calculating.Set(1)
	} else {
		mt.Calculating.Set(0)
	}
}

func (s *Service) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}
