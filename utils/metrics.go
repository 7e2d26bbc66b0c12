package utils

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricsRegistry holds every planz collector. It is served by the admin
// server and pushed to a Pushgateway after batch runs.
var MetricsRegistry = prometheus.NewRegistry()

var (
	CandidatesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planz_candidates_total",
		Help: "Search candidates processed by the verification gate, by verdict.",
	}, []string{"verdict"})

	SourcesFetchedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planz_sources_fetched_total",
		Help: "Source url fetches, by resulting fetch status.",
	}, []string{"status"})

	EventsStoredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planz_events_stored_total",
		Help: "Extracted event items, by store outcome.",
	}, []string{"result"})

	CalendarSyncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planz_calendar_sync_total",
		Help: "Calendar reconciliation outcomes.",
	}, []string{"result"})
)

func init() {
	MetricsRegistry.MustRegister(
		CandidatesCounter,
		SourcesFetchedCounter,
		EventsStoredCounter,
		CalendarSyncCounter,
	)
}

// PushMetrics pushes the registry to a Prometheus Pushgateway under job.
func PushMetrics(gatewayUrl string, job string) error {
	return errors.Wrap(
		push.New(gatewayUrl, job).Gatherer(MetricsRegistry).Push(),
		"fail to push metrics",
	)
}
