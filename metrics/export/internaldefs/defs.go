package internaldefs

import (
	parcelauth "github.com/capstone/parcelauth"
)

// CounterDef binds an engine counter to its exported metric name.
type CounterDef struct {
	ID   parcelauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported metric name.
type HistogramDef struct {
	ID   parcelauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. The Prometheus and OTel
// exporters both iterate this slice so names never diverge.
var CounterDefs = []CounterDef{
	{ID: parcelauth.MetricLoginSuccess, Name: "parcelauth_login_success_total", Help: "Successful login attempts."},
	{ID: parcelauth.MetricLoginFailure, Name: "parcelauth_login_failure_total", Help: "Failed login attempts."},
	{ID: parcelauth.MetricLoginRateLimited, Name: "parcelauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: parcelauth.MetricRefreshSuccess, Name: "parcelauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: parcelauth.MetricRefreshFailure, Name: "parcelauth_refresh_failure_total", Help: "Refresh attempts that failed verification."},
	{ID: parcelauth.MetricReplayDetected, Name: "parcelauth_replay_detected_total", Help: "Refresh attempts whose token id was already consumed."},
	{ID: parcelauth.MetricRefreshRateLimited, Name: "parcelauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: parcelauth.MetricLogout, Name: "parcelauth_logout_total", Help: "Logout operations."},
	{ID: parcelauth.MetricLedgerUnavailable, Name: "parcelauth_ledger_unavailable_total", Help: "Operations aborted by a revocation ledger outage."},
	{ID: parcelauth.MetricAuthenticateSuccess, Name: "parcelauth_authenticate_success_total", Help: "Access tokens that verified."},
	{ID: parcelauth.MetricAuthenticateAnonymous, Name: "parcelauth_authenticate_anonymous_total", Help: "Access tokens that failed verification."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: parcelauth.MetricAuthenticateLatency, Name: "parcelauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds of the engine's fixed buckets,
// in seconds, as rendered in Prometheus text format.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies a snapshot slice into the fixed 8-bucket array,
// zero-filling when the snapshot is short.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
