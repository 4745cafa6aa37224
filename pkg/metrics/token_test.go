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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) *TokenMetrics {
	t.Helper()
	return NewTokenMetrics(Config{Namespace: t.Name()})
}

func TestRecordOperationIncrementsCounterAndObservesDuration(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordOperation(OperationMetrics{Mechanism: "AES-GCM", Function: "encrypt", DurationSeconds: 0.002, Success: true})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("AES-GCM", "encrypt", StatusSuccess)))
}

func TestRecordOperationFailureUsesErrorStatus(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordOperation(OperationMetrics{Mechanism: "RSA-PKCS", Function: "sign", DurationSeconds: 0.01, Success: false})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("RSA-PKCS", "sign", StatusError)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("RSA-PKCS", "sign", StatusSuccess)))
}

func TestSetSessionsActiveAndObjectsActive(t *testing.T) {
	m := newTestMetrics(t)

	m.SetSessionsActive(3)
	m.SetObjectsActive(12)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsActive.WithLabelValues()))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.ObjectsActive.WithLabelValues()))
}

func TestRecordStoreCall(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordStoreCall(StoreCallMetrics{Backend: "postgres", Op: "put", DurationSeconds: 0.001, Success: true})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreCallsTotal.WithLabelValues("postgres", "put", StatusSuccess)))
}

func TestNoOpMetricsSatisfiesRecorder(t *testing.T) {
	var r Recorder = NoOpMetrics{}
	r.RecordOperation(OperationMetrics{})
	r.SetSessionsActive(1)
	r.SetObjectsActive(1)
	r.RecordStoreCall(StoreCallMetrics{})
	require.NotNil(t, r)
}
