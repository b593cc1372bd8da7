package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RefreshCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "refresh", Name: "cycles_total", Help: "Content refresh cycles by outcome."},
		[]string{"outcome", "trigger"},
	)
	InvoicesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "payment", Name: "invoices_created_total", Help: "Invoice creation attempts by result."},
		[]string{"result"},
	)
	InvoicePolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "payment", Name: "invoice_polls_total", Help: "Invoice polls by observed status."},
		[]string{"status"},
	)
	Grants = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Name: "entitlement_grants_total", Help: "New entitlements by source."},
		[]string{"source"},
	)
	StateSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "state", Name: "saves_total", Help: "State document saves by backend and result."},
		[]string{"backend", "result"},
	)
	UpdatesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "bot", Name: "updates_total", Help: "Handled chat updates by route and status."},
		[]string{"route", "status"},
	)
	// OutboundCalls counts queued Bot API calls; result is "ok" or the
	// failure kind reported by the sender.
	OutboundCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "combogate", Subsystem: "bot", Name: "outbound_calls_total", Help: "Queued Bot API calls by action and result."},
		[]string{"action", "result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RefreshCycles)
	reg.MustRegister(InvoicesCreated)
	reg.MustRegister(InvoicePolls)
	reg.MustRegister(Grants)
	reg.MustRegister(StateSaves)
	reg.MustRegister(UpdatesHandled)
	reg.MustRegister(OutboundCalls)
}

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
