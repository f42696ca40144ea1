package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"vouchnet/core/events"
)

// VoucherMetrics counts lifecycle activity by emitted event type. It plugs
// into the engine as one more events.Emitter, so the core stays unaware of
// the metrics backend.
type VoucherMetrics struct {
	transitions *prometheus.CounterVec
}

var (
	voucherMetricsOnce sync.Once
	voucherRegistry    *VoucherMetrics
)

// Metrics returns the lazily-initialised voucher metrics registry, registered
// against the default prometheus registerer.
func Metrics() *VoucherMetrics {
	voucherMetricsOnce.Do(func() {
		voucherRegistry = newVoucherMetrics(prometheus.DefaultRegisterer)
	})
	return voucherRegistry
}

func newVoucherMetrics(reg prometheus.Registerer) *VoucherMetrics {
	m := &VoucherMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vouchnet",
			Subsystem: "voucher",
			Name:      "events_total",
			Help:      "Lifecycle and settlement events segmented by event type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.transitions)
	}
	return m
}

// Emit implements the events.Emitter interface.
func (m *VoucherMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	if eventType == "" {
		return
	}
	m.transitions.WithLabelValues(eventType).Inc()
}
