package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAllocationNormalizesLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordAllocation(" Invoice_Number ", ResultConflict)
	m.RecordAllocation(KindInvoiceNumber, ResultConflict)
	m.RecordAllocation("", ResultFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.allocations.WithLabelValues(KindInvoiceNumber, ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.allocations.WithLabelValues("unknown", ResultFailed)))
}

func TestRecordRecomputeOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordRecompute(true)
	m.RecordRecompute(false)
	m.RecordRecompute(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputes.WithLabelValues("written")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recomputes.WithLabelValues("unchanged")))
}

func TestRecordRateLimit(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRateLimit("allowed")
	m.RecordRateLimit("Denied")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimits.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimits.WithLabelValues("denied")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAllocation(KindBillID, ResultAllocated)
		m.ObserveAttempts(2)
		m.RecordRecompute(true)
		m.RecordMissingLookup()
		m.RecordRateLimit("denied")
	})
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
