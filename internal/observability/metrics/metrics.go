package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "invoicebook"

// Allocation outcomes.
const (
	ResultAllocated = "allocated"
	ResultConflict  = "conflict"
	ResultExhausted = "exhausted"
	ResultFailed    = "failed"
)

// Identifier kinds.
const (
	KindBillID        = "bill_id"
	KindInvoiceNumber = "invoice_number"
	KindManual        = "manual"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	allocations       *prometheus.CounterVec
	allocationRetries prometheus.Histogram
	recomputes        *prometheus.CounterVec
	missingLookups    prometheus.Counter
	rateLimits        *prometheus.CounterVec
}

// New registers the domain instruments on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_allocations_total",
			Help:      "Invoice identifier allocation attempts by kind and result.",
		}, []string{"kind", "result"}),
		allocationRetries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identifier_allocation_attempts",
			Help:      "Attempts needed to persist a new invoice.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_total_recomputes_total",
			Help:      "Invoice total recomputations by outcome.",
		}, []string{"outcome"}),
		missingLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_number_lookups_total",
			Help:      "Gap detection queries served.",
		}),
		rateLimits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Owner rate limit decisions.",
		}, []string{"decision"}),
	}

	for _, c := range []prometheus.Collector{m.allocations, m.allocationRetries, m.recomputes, m.missingLookups, m.rateLimits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordAllocation counts one allocation attempt.
func (m *Metrics) RecordAllocation(kind, result string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(normalizeLabel(kind), normalizeLabel(result)).Inc()
}

// ObserveAttempts records how many attempts a create needed.
func (m *Metrics) ObserveAttempts(attempts int) {
	if m == nil {
		return
	}
	m.allocationRetries.Observe(float64(attempts))
}

// RecordRecompute counts a total recomputation; written reports whether the row changed.
func (m *Metrics) RecordRecompute(written bool) {
	if m == nil {
		return
	}
	outcome := "unchanged"
	if written {
		outcome = "written"
	}
	m.recomputes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordMissingLookup() {
	if m == nil {
		return
	}
	m.missingLookups.Inc()
}

// RecordRateLimit counts an owner rate limit decision: allowed, denied or error.
func (m *Metrics) RecordRateLimit(decision string) {
	if m == nil {
		return
	}
	m.rateLimits.WithLabelValues(normalizeLabel(decision)).Inc()
}

func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}
