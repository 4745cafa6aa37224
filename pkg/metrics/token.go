/*
Copyright 2026 CK11Core Authors.

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

// Package metrics provides Prometheus metrics for tokend: Primitive Engine
// operation counts/durations, session/object table gauges, and Object
// Store call counts/durations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TokenMetrics holds Prometheus metrics for one tokend process.
type TokenMetrics struct {
	// Operation metrics (spec.md §1's primitive crypto engine calls).
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Session & Auth Layer gauges.
	SessionsActive *prometheus.GaugeVec
	ObjectsActive  *prometheus.GaugeVec

	// Object Store call metrics (memory/postgres/redis backends).
	StoreCallsTotal   *prometheus.CounterVec
	StoreCallDuration *prometheus.HistogramVec
}

// Config configures TokenMetrics.
type Config struct {
	Namespace string
	// OperationDurationBuckets for Primitive Engine call duration histograms.
	// If nil, defaults to DefaultOperationDurationBuckets.
	OperationDurationBuckets []float64
	// StoreCallDurationBuckets for Object Store call duration histograms.
	// If nil, defaults to DefaultStoreCallDurationBuckets.
	StoreCallDurationBuckets []float64
}

// DefaultOperationDurationBuckets covers in-process crypto (sub-millisecond)
// through a remote-KMS round trip (hundreds of milliseconds).
var DefaultOperationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// DefaultStoreCallDurationBuckets covers an in-memory map lookup through a
// Postgres round trip under load.
var DefaultStoreCallDurationBuckets = []float64{0.0001, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// NewTokenMetrics creates and registers all Prometheus metrics for tokend.
func NewTokenMetrics(cfg Config) *TokenMetrics {
	labels := prometheus.Labels{"namespace": cfg.Namespace}

	opBuckets := cfg.OperationDurationBuckets
	if opBuckets == nil {
		opBuckets = DefaultOperationDurationBuckets
	}
	storeBuckets := cfg.StoreCallDurationBuckets
	if storeBuckets == nil {
		storeBuckets = DefaultStoreCallDurationBuckets
	}

	return &TokenMetrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "ck11_tokend_operations_total",
			Help:        "Total number of Primitive Engine operations",
			ConstLabels: labels,
		}, []string{"mechanism", "function", "status"}),

		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ck11_tokend_operation_duration_seconds",
			Help:        "Primitive Engine operation duration in seconds",
			ConstLabels: labels,
			Buckets:     opBuckets,
		}, []string{"mechanism", "function"}),

		SessionsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ck11_tokend_sessions_active",
			Help:        "Number of currently open sessions",
			ConstLabels: labels,
		}, []string{}),

		ObjectsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ck11_tokend_objects_active",
			Help:        "Number of objects currently held in the token's object table",
			ConstLabels: labels,
		}, []string{}),

		StoreCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "ck11_tokend_store_calls_total",
			Help:        "Total number of Object Store calls",
			ConstLabels: labels,
		}, []string{"backend", "op", "status"}),

		StoreCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ck11_tokend_store_call_duration_seconds",
			Help:        "Object Store call duration in seconds",
			ConstLabels: labels,
			Buckets:     storeBuckets,
		}, []string{"backend", "op"}),
	}
}

// OperationMetrics describes one completed Primitive Engine call.
type OperationMetrics struct {
	Mechanism       string
	Function        string
	DurationSeconds float64
	Success         bool
}

// RecordOperation records metrics for a Primitive Engine call.
func (m *TokenMetrics) RecordOperation(om OperationMetrics) {
	status := StatusSuccess
	if !om.Success {
		status = StatusError
	}
	m.OperationsTotal.WithLabelValues(om.Mechanism, om.Function, status).Inc()
	m.OperationDuration.WithLabelValues(om.Mechanism, om.Function).Observe(om.DurationSeconds)
}

// SetSessionsActive sets the current open-session count.
func (m *TokenMetrics) SetSessionsActive(n float64) {
	m.SessionsActive.WithLabelValues().Set(n)
}

// SetObjectsActive sets the current object-table size.
func (m *TokenMetrics) SetObjectsActive(n float64) {
	m.ObjectsActive.WithLabelValues().Set(n)
}

// StoreCallMetrics describes one completed Object Store call.
type StoreCallMetrics struct {
	Backend         string // "memory", "postgres", "redis"
	Op              string // "put", "get", "delete", "find"
	DurationSeconds float64
	Success         bool
}

// RecordStoreCall records metrics for an Object Store call.
func (m *TokenMetrics) RecordStoreCall(sm StoreCallMetrics) {
	status := StatusSuccess
	if !sm.Success {
		status = StatusError
	}
	m.StoreCallsTotal.WithLabelValues(sm.Backend, sm.Op, status).Inc()
	m.StoreCallDuration.WithLabelValues(sm.Backend, sm.Op).Observe(sm.DurationSeconds)
}

// Recorder is the interface for recording tokend metrics, allowing a no-op
// implementation when metrics are disabled.
type Recorder interface {
	RecordOperation(om OperationMetrics)
	SetSessionsActive(n float64)
	SetObjectsActive(n float64)
	RecordStoreCall(sm StoreCallMetrics)
}

// NoOpMetrics is a no-op Recorder for when metrics are disabled.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperation(_ OperationMetrics)  {}
func (NoOpMetrics) SetSessionsActive(_ float64)         {}
func (NoOpMetrics) SetObjectsActive(_ float64)          {}
func (NoOpMetrics) RecordStoreCall(_ StoreCallMetrics)  {}

var (
	_ Recorder = (*TokenMetrics)(nil)
	_ Recorder = NoOpMetrics{}
)
