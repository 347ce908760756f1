/*
Package api serves the relay's HTTP operations surface.

HealthServer exposes:

	GET /health   overall component health, 503 when any component is unhealthy
	GET /ready    readiness of critical components; probes the store
	GET /live     liveness, always 200 while the process runs
	GET /metrics  Prometheus exposition

The server is optional; the run command skips it when api.addr is empty.
*/
package api
