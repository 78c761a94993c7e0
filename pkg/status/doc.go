/*
Package status exposes the client's local diagnostics endpoints.

Three routes on a chi router:

  - /healthz: liveness, 200 whenever the process runs
  - /readyz: readiness, requires a connected push channel and a
    readable local database; 503 with per-check detail otherwise
  - /metrics: Prometheus metrics

The server is optional; it only starts when a status address is
configured.
*/
package status
