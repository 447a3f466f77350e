package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"beanchain/core/types"
)

type eventMetrics struct {
	events    *prometheus.CounterVec
	transfers *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed ledger events by type.",
			}, []string{"type"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bean",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of token transfers segmented by asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(eventRegistry.events, eventRegistry.transfers)
	})
	return eventRegistry
}

// Record counts a batch of committed events.
func (m *eventMetrics) Record(evts []*types.Event) {
	if m == nil {
		return
	}
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		m.events.WithLabelValues(evt.Type).Inc()
		if evt.Type == "bank.transfer" {
			m.RecordTransfer(evt.Attr("token"))
		}
	}
}

// RecordTransfer increments the transfer counter for the supplied asset ticker.
func (m *eventMetrics) RecordTransfer(asset string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}
