// Package prometheus renders parcelauth engine metrics in Prometheus
// text exposition format.
//
// [NewPrometheusExporter] accepts a [parcelauth.Engine] and exposes an
// [http.Handler] that serves all counters and histograms. Counter names
// are prefixed parcelauth_*_total; the single histogram is
// parcelauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
