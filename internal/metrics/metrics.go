package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_lookups_total",
			Help: "Officer lookups by category and outcome",
		},
		[]string{"category", "status"}, // Success|Failed|Rejected
	)

	CreditsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_credits_moved_total",
			Help: "Credits moved through the ledger by action",
		},
		[]string{"action"}, // Deduction|Top-up|Renewal|Refund|Adjustment
	)

	VendorRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_vendor_requests_total",
			Help: "Outbound vendor calls by vendor, endpoint and outcome",
		},
		[]string{"vendor", "endpoint", "outcome"}, // ok|client_error|server_error|transport_error
	)

	VendorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_vendor_request_seconds",
			Help:    "Vendor call latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"vendor"},
	)

	BreakerOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_vendor_breaker_open",
			Help: "1 when an endpoint breaker is open or half-open",
		},
		[]string{"endpoint"},
	)

	ManualRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_manual_requests_total",
			Help: "Manual request lifecycle by stage",
		},
		[]string{"stage"}, // created|approved|rejected
	)

	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_job_runs_total",
			Help: "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	CreditsResetOfficers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_credits_reset_officers_total",
			Help: "Officers whose credits were reset by the expiry job",
		},
	)

	AnalyticsFlushed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_analytics_events_total",
			Help: "Query events handled by the analytics worker",
		},
		[]string{"result"}, // written|failed|skipped
	)
)

var once sync.Once

// MustRegister registers every collector once; later calls are no-ops.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			LookupsTotal,
			CreditsMoved,
			VendorRequests,
			VendorLatency,
			BreakerOpen,
			ManualRequests,
			JobRuns,
			CreditsResetOfficers,
			AnalyticsFlushed,
		)
	})
}
