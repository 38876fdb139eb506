// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The CasperLabs Authors
// (modifications)
// This file is part of BlockDAG.
//
// BlockDAG is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BlockDAG is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with BlockDAG. If not, see <http://www.gnu.org/licenses/>.

// Package dagmetrics exposes the engine's Prometheus instrumentation:
// insert/squash counters, CRC-mismatch-recovered counts, checkpoint cache
// hit/miss, and the live topo-sort row gauge.
package dagmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus collectors. Callers that want these
// served must register them with their own registry via Registerer.
type Metrics struct {
	Inserts                prometheus.Counter
	Squashes               prometheus.Counter
	CRCMismatchesRecovered prometheus.Counter
	CheckpointCacheHits    prometheus.Counter
	CheckpointCacheMisses  prometheus.Counter
	LiveTopoSortRows       prometheus.Gauge
}

// New builds a Metrics bundle of unregistered collectors. Nothing is
// registered with the global default registry; callers choose a registry
// and pass it to Registerer.
func New() *Metrics {
	return &Metrics{
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "inserts_total",
			Help:      "Total number of Insert calls that mutated state.",
		}),
		Squashes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "latest_messages_squashes_total",
			Help:      "Total number of latest-messages log squashes.",
		}),
		CRCMismatchesRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "crc_mismatches_recovered_total",
			Help:      "Total number of logs recovered by dropping a dangling tail record.",
		}),
		CheckpointCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "checkpoint_cache_hits_total",
			Help:      "Total number of checkpoint loads served from the LRU cache.",
		}),
		CheckpointCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "checkpoint_cache_misses_total",
			Help:      "Total number of checkpoint loads that hit disk.",
		}),
		LiveTopoSortRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockdag",
			Subsystem: "dag",
			Name:      "live_topo_sort_rows",
			Help:      "Number of rows currently held in the live (in-memory) topo-sort vector.",
		}),
	}
}

// Registerer registers every collector in m with reg, matching the
// registration pattern used throughout the erigon-lib metrics setup.
func (m *Metrics) Registerer(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Inserts, m.Squashes, m.CRCMismatchesRecovered,
		m.CheckpointCacheHits, m.CheckpointCacheMisses, m.LiveTopoSortRows,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
