package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Poller metrics
	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_fetch_attempts_total",
			Help: "Total number of clan log fetch attempts by poller and result",
		},
		[]string{"poller", "result"},
	)

	FetchAbandonedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_fetch_abandoned_total",
			Help: "Total number of poll ticks abandoned after exhausting all attempts",
		},
		[]string{"poller"},
	)

	EventsFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_events_fetched_total",
			Help: "Total number of records received from the clan log API",
		},
		[]string{"poller"},
	)

	EventsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_events_skipped_total",
			Help: "Total number of records skipped because they could not be parsed",
		},
		[]string{"poller"},
	)

	EventsInsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_events_inserted_total",
			Help: "Total number of new events stored (duplicates excluded)",
		},
		[]string{"poller"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clanrelay_poll_duration_seconds",
			Help:    "Time taken by one poll tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"poller"},
	)

	// Delivery metrics
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_deliveries_total",
			Help: "Total number of events processed by the delivery worker by result (sent, failed, suppressed)",
		},
		[]string{"result"},
	)

	HookErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clanrelay_hook_errors_total",
			Help: "Total number of failed side-effect hook invocations",
		},
	)

	DeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clanrelay_delivery_duration_seconds",
			Help:    "Time taken by one delivery tick in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler metrics
	JobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clanrelay_job_runs_total",
			Help: "Total number of scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	// Store metrics
	StoredEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clanrelay_stored_events",
			Help: "Number of stored events by category",
		},
		[]string{"category"},
	)

	UnsentEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clanrelay_unsent_events",
			Help: "Number of stored events not yet delivered",
		},
	)
)

func init() {
	prometheus.MustRegister(FetchAttemptsTotal)
	prometheus.MustRegister(FetchAbandonedTotal)
	prometheus.MustRegister(EventsFetchedTotal)
	prometheus.MustRegister(EventsSkippedTotal)
	prometheus.MustRegister(EventsInsertedTotal)
	prometheus.MustRegister(PollDuration)
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(HookErrorsTotal)
	prometheus.MustRegister(DeliveryDuration)
	prometheus.MustRegister(JobRunsTotal)
	prometheus.MustRegister(StoredEvents)
	prometheus.MustRegister(UnsentEvents)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
