// SPDX-License-Identifier: AGPL-3.0-or-later
// loadfabric - a distributed load-balanced request dispatch fabric
// Copyright (C) 2026
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter, gauge, and histogram the fabric exposes
// over /metrics. One instance is shared across a node's components.
type Metrics struct {
	// KV store metrics (internal/kv backs the load registry).
	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec

	// RPC node metrics.
	RPCCallsTotal    *prometheus.CounterVec
	RPCCallDuration  *prometheus.HistogramVec
	RPCPeersOnline   prometheus.Gauge

	// Load registry metrics.
	LoadRegistryReportDuration prometheus.Histogram
	LoadRegistryKnownPeers     prometheus.Gauge

	// Dispatcher metrics.
	DispatcherSelectionsTotal *prometheus.CounterVec
	DispatcherFallbacksTotal  prometheus.Counter

	// Scheduler metrics.
	SchedulerJobsTotal          *prometheus.CounterVec
	SchedulerActiveJobs         prometheus.Gauge
	SchedulerReservationsActive prometheus.Gauge
	SchedulerQueueDepth         prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		KVOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadfabric_kv_operations_total",
			Help: "The total number of KV store operations performed",
		}, []string{"operation", "status"}),
		KVOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadfabric_kv_operation_duration_seconds",
			Help:    "Duration of KV store operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		RPCCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadfabric_rpc_calls_total",
			Help: "The total number of outbound RPC calls by outcome",
		}, []string{"outcome"}),
		RPCCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loadfabric_rpc_call_duration_seconds",
			Help:    "Duration of outbound RPC calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		RPCPeersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadfabric_rpc_peers_online",
			Help: "The number of peers this node currently considers reachable",
		}),

		LoadRegistryReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loadfabric_load_registry_report_duration_seconds",
			Help:    "Duration of load report writes to the shared datastore",
			Buckets: prometheus.DefBuckets,
		}),
		LoadRegistryKnownPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadfabric_load_registry_known_peers",
			Help: "The number of peers with a non-expired load report",
		}),

		DispatcherSelectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadfabric_dispatcher_selections_total",
			Help: "The total number of dispatcher peer selections by outcome",
		}, []string{"outcome"}),
		DispatcherFallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadfabric_dispatcher_fallbacks_total",
			Help: "The total number of times dispatch fell back to the local node after a remote RPC failure",
		}),

		SchedulerJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadfabric_scheduler_jobs_total",
			Help: "The total number of jobs created by creation status",
		}, []string{"status"}),
		SchedulerActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadfabric_scheduler_active_jobs",
			Help: "The number of jobs currently open on this node",
		}),
		SchedulerReservationsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadfabric_scheduler_reservations_active",
			Help: "The number of unconfirmed seat reservations currently held",
		}),
		SchedulerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loadfabric_scheduler_queue_depth",
			Help: "The number of job-creation requests waiting on the concurrency gate",
		}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(m.KVOperationsTotal)
	prometheus.MustRegister(m.KVOperationDuration)
	prometheus.MustRegister(m.RPCCallsTotal)
	prometheus.MustRegister(m.RPCCallDuration)
	prometheus.MustRegister(m.RPCPeersOnline)
	prometheus.MustRegister(m.LoadRegistryReportDuration)
	prometheus.MustRegister(m.LoadRegistryKnownPeers)
	prometheus.MustRegister(m.DispatcherSelectionsTotal)
	prometheus.MustRegister(m.DispatcherFallbacksTotal)
	prometheus.MustRegister(m.SchedulerJobsTotal)
	prometheus.MustRegister(m.SchedulerActiveJobs)
	prometheus.MustRegister(m.SchedulerReservationsActive)
	prometheus.MustRegister(m.SchedulerQueueDepth)
}

func (m *Metrics) RecordKVOperation(operation, status string, durationSeconds float64) {
	m.KVOperationsTotal.WithLabelValues(operation, status).Inc()
	m.KVOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) RecordRPCCall(method, outcome string, durationSeconds float64) {
	m.RPCCallsTotal.WithLabelValues(outcome).Inc()
	m.RPCCallDuration.WithLabelValues(method).Observe(durationSeconds)
}

func (m *Metrics) SetPeersOnline(count float64) {
	m.RPCPeersOnline.Set(count)
}

func (m *Metrics) RecordLoadReport(durationSeconds float64) {
	m.LoadRegistryReportDuration.Observe(durationSeconds)
}

func (m *Metrics) SetKnownPeers(count float64) {
	m.LoadRegistryKnownPeers.Set(count)
}

func (m *Metrics) RecordDispatcherSelection(outcome string) {
	m.DispatcherSelectionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDispatcherFallback() {
	m.DispatcherFallbacksTotal.Inc()
}

func (m *Metrics) RecordJobCreated(status string) {
	m.SchedulerJobsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) SetActiveJobs(count float64) {
	m.SchedulerActiveJobs.Set(count)
}

func (m *Metrics) SetActiveReservations(count float64) {
	m.SchedulerReservationsActive.Set(count)
}

func (m *Metrics) SetQueueDepth(count float64) {
	m.SchedulerQueueDepth.Set(count)
}
