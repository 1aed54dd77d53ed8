/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics registers the Prometheus series emitted by all four
// controllers, and the metrics HTTP server itself, against the
// controller-runtime metrics registry. Reconcilers never touch the
// underlying vectors directly; they go through the small per-kind helper
// types this package exposes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Kind names the four controllers, used as the fixed namespace segment of
// every per-kind series name below.
type Kind string

const (
	KindMask        Kind = "masks"
	KindConsumer    Kind = "consumers"
	KindProvider    Kind = "providers"
	KindReservation Kind = "reservations"
)

var (
	reconcileCounters = map[Kind]*prometheus.CounterVec{}
	actionCounters    = map[Kind]*prometheus.CounterVec{}
	readDurations     = map[Kind]*prometheus.HistogramVec{}
	writeDurations    = map[Kind]*prometheus.HistogramVec{}

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpno_http_requests_total",
			Help: "Total number of HTTP requests served by a sub-command's metrics server.",
		},
		[]string{"code", "method"},
	)

	httpResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpno_http_response_size_bytes",
			Help:    "Size of HTTP responses served by a sub-command's metrics server, in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"code", "method"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpno_http_request_duration_seconds",
			Help:    "Latency of HTTP requests served by a sub-command's metrics server.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code", "method"},
	)

	// Provider-specific series beyond spec.md's minimum contract, additive
	// enrichment kept alongside the mandated names above.
	providerActiveSlotsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vpno",
			Subsystem: "providers",
			Name:      "active_slots",
			Help:      "Number of MaskReservations currently held against a MaskProvider.",
		},
		[]string{"namespace", "name"},
	)

	providerMaxSlotsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vpno",
			Subsystem: "providers",
			Name:      "max_slots",
			Help:      "Configured slot capacity of a MaskProvider.",
		},
		[]string{"namespace", "name"},
	)

	verificationDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vpno",
			Subsystem: "providers",
			Name:      "verification_duration_seconds",
			Help:      "Duration of provider verification probes in seconds.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"namespace", "name"},
	)
)

func init() {
	collectors := []prometheus.Collector{
		httpRequestsTotal,
		httpResponseSizeBytes,
		httpRequestDurationSeconds,
		providerActiveSlotsGauge,
		providerMaxSlotsGauge,
		verificationDurationHistogram,
	}
	for _, kind := range []Kind{KindMask, KindConsumer, KindProvider, KindReservation} {
		reconcileCounters[kind] = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vpno_" + string(kind) + "_reconcile_counter",
				Help: "Total number of reconcile loop invocations for " + string(kind) + ".",
			},
			[]string{"namespace", "name", "result"},
		)
		actionCounters[kind] = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vpno_" + string(kind) + "_action_counter",
				Help: "Total number of mutating actions taken while reconciling " + string(kind) + ".",
			},
			[]string{"namespace", "name", "action"},
		)
		readDurations[kind] = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vpno_" + string(kind) + "_read_duration_seconds",
				Help:    "Duration of API server read calls made while reconciling " + string(kind) + ".",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"namespace", "name"},
		)
		writeDurations[kind] = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vpno_" + string(kind) + "_write_duration_seconds",
				Help:    "Duration of API server write calls made while reconciling " + string(kind) + ".",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"namespace", "name"},
		)
		collectors = append(collectors, reconcileCounters[kind], actionCounters[kind], readDurations[kind], writeDurations[kind])
	}
	metrics.Registry.MustRegister(collectors...)
}

// ReconcileMetrics records reconcile-loop-level metrics for one controller
// kind and one object.
type ReconcileMetrics struct {
	namespace string
	name      string
	kind      Kind
}

// NewReconcileMetrics returns a ReconcileMetrics bound to namespace/name for
// the given kind.
func NewReconcileMetrics(kind Kind, namespace, name string) *ReconcileMetrics {
	return &ReconcileMetrics{namespace: namespace, name: name, kind: kind}
}

// IncReconcile increments the reconcile counter under a low-cardinality
// result label ("success", "requeue", "error").
func (m *ReconcileMetrics) IncReconcile(result string) {
	reconcileCounters[m.kind].WithLabelValues(m.namespace, m.name, result).Inc()
}

// IncAction increments the action counter for one mutating step a
// reconciler took (e.g. "create-reservation", "publish-assignment",
// "delete-probe-pod").
func (m *ReconcileMetrics) IncAction(action string) {
	actionCounters[m.kind].WithLabelValues(m.namespace, m.name, action).Inc()
}

// ObserveRead records how long a single API server read call took.
func (m *ReconcileMetrics) ObserveRead(d time.Duration) {
	readDurations[m.kind].WithLabelValues(m.namespace, m.name).Observe(d.Seconds())
}

// ObserveWrite records how long a single API server write call took.
func (m *ReconcileMetrics) ObserveWrite(d time.Duration) {
	writeDurations[m.kind].WithLabelValues(m.namespace, m.name).Observe(d.Seconds())
}

// ProviderMetrics records capacity and verification series for a single
// MaskProvider, beyond the per-kind reconcile/action/read/write series
// every controller gets.
type ProviderMetrics struct {
	namespace string
	name      string
}

// NewProviderMetrics returns a ProviderMetrics bound to namespace/name.
func NewProviderMetrics(namespace, name string) *ProviderMetrics {
	return &ProviderMetrics{namespace: namespace, name: name}
}

// SetSlots records active and max slot counts.
func (m *ProviderMetrics) SetSlots(active, max uint) {
	providerActiveSlotsGauge.WithLabelValues(m.namespace, m.name).Set(float64(active))
	providerMaxSlotsGauge.WithLabelValues(m.namespace, m.name).Set(float64(max))
}

// ObserveVerificationDuration records how long a verification probe took.
func (m *ProviderMetrics) ObserveVerificationDuration(d time.Duration) {
	verificationDurationHistogram.WithLabelValues(m.namespace, m.name).Observe(d.Seconds())
}

// Clear removes every series for this provider, called on finalization to
// avoid leaving stale series behind.
func (m *ProviderMetrics) Clear() {
	providerActiveSlotsGauge.DeleteLabelValues(m.namespace, m.name)
	providerMaxSlotsGauge.DeleteLabelValues(m.namespace, m.name)
	verificationDurationHistogram.DeletePartialMatch(prometheus.Labels{"namespace": m.namespace, "name": m.name})
}

// Handler returns the promhttp handler for a sub-command's metrics server,
// instrumented so every scrape (and any other request served on the same
// mux) contributes to the vpno_http_* series.
func Handler() http.Handler {
	base := promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
	instrumented := promhttp.InstrumentHandlerCounter(httpRequestsTotal,
		promhttp.InstrumentHandlerDuration(httpRequestDurationSeconds,
			promhttp.InstrumentHandlerResponseSize(httpResponseSizeBytes, base)))
	return instrumented
}
