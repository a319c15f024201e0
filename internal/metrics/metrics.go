package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequests counts handled requests by method, route and status class.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "deedshare",
	Name:      "http_requests_total",
	Help:      "Handled HTTP requests.",
}, []string{"method", "path", "status"})

// LedgerEvents counts appended ledger events by type.
var LedgerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "deedshare",
	Name:      "ledger_events_total",
	Help:      "Ledger events appended, by event type.",
}, []string{"type"})

// ChangefeedPublishErrors counts failed redis publishes of committed events.
var ChangefeedPublishErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "deedshare",
	Name:      "changefeed_publish_errors_total",
	Help:      "Redis changefeed publishes that failed after commit.",
})
