/*
Package metrics provides Prometheus metrics and component health for the relay.

All metrics are package-level collectors registered with the default
Prometheus registry at init and exposed through Handler.

# Metric Catalog

Poller metrics, labelled by poller name (bulk, recent):

	clanrelay_fetch_attempts_total{poller,result}  upstream attempts (success, failure)
	clanrelay_fetch_abandoned_total{poller}        ticks that exhausted every attempt
	clanrelay_events_fetched_total{poller}         records received
	clanrelay_events_skipped_total{poller}         records that failed to parse
	clanrelay_events_inserted_total{poller}        new events stored
	clanrelay_poll_duration_seconds{poller}        tick latency

Delivery metrics:

	clanrelay_deliveries_total{result}             sent, failed, suppressed
	clanrelay_hook_errors_total                    failed or panicking hooks
	clanrelay_delivery_duration_seconds            tick latency

Scheduler and store metrics:

	clanrelay_job_runs_total{job,result}           job ticks (success, failure)
	clanrelay_stored_events{category}              stored events per category
	clanrelay_unsent_events                        backlog awaiting delivery

The store gauges are refreshed by a Collector rather than on every insert.

# Usage

Timing a tick:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.PollDuration, "recent")

Refreshing store gauges:

	collector := metrics.NewCollector(store)
	collector.Start()
	defer collector.Stop()

# Health

Components report their state with RegisterComponent and UpdateComponent.
GetHealth is unhealthy when any component is; GetReadiness only considers the
critical components (storage by default, see SetCriticalComponents).
HealthHandler, ReadyHandler and LivenessHandler serve these as JSON.
*/
package metrics
