package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics carries the billing counters exposed on /metrics.
type Metrics struct {
	MessagesSent      prometheus.Counter
	SegmentsSent      prometheus.Counter
	ChargesApplied    prometheus.Counter
	RefundsIssued     prometheus.Counter
	RejectedNoBalance prometheus.Counter
	RejectedByQuota   prometheus.Counter
	DuplicateSettles  prometheus.Counter
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_messages_sent_total",
			Help: "Messages accepted and charged.",
		}),
		SegmentsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_segments_sent_total",
			Help: "SMS segments across all accepted messages.",
		}),
		ChargesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_ledger_charges_total",
			Help: "Charge ledger entries committed.",
		}),
		RefundsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_ledger_refunds_total",
			Help: "Refund ledger entries committed.",
		}),
		RejectedNoBalance: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_sends_rejected_balance_total",
			Help: "Sends rejected by the affordability pre-check.",
		}),
		RejectedByQuota: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_sends_rejected_quota_total",
			Help: "Sends rejected by the per-account rate quota.",
		}),
		DuplicateSettles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "upeo_settle_duplicates_total",
			Help: "Delivery callbacks that replayed an already-settled message.",
		}),
	}

	reg.MustRegister(
		m.MessagesSent,
		m.SegmentsSent,
		m.ChargesApplied,
		m.RefundsIssued,
		m.RejectedNoBalance,
		m.RejectedByQuota,
		m.DuplicateSettles,
	)
	return m
}
