// Package scheduler runs the relay's periodic jobs.
//
// Every Job gets its own goroutine that ticks once at Start and then on the
// job's interval. A job never overlaps with itself, including ticks requested
// through RunOnce. Stop waits for in-flight ticks; ticks are never cancelled.
// Each tick is logged with a fresh run id and counted in
// clanrelay_job_runs_total.
package scheduler
