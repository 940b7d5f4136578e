// Package prometheus exposes goAccount counters through client_golang.
//
// [NewExporter] registers a [Collector] on a private registry and serves it with
// promhttp. Counter names are prefixed goaccount_*_total; the single histogram is
// goaccount_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
