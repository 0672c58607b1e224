package parcelauth

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/capstone/parcelauth/internal/audit"
	internalmetrics "github.com/capstone/parcelauth/internal/metrics"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	AccountActive AccountStatus = iota
	AccountDisabled
	AccountLocked
)

// Identity is the authenticated caller attached to a request after a
// bearer token verifies. Subject is the normalized account identifier,
// UserID the numeric account key.
type Identity struct {
	Subject string
	UserID  int64
}

// UserRecord is the account record returned by [UserProvider]. The
// engine never writes it back; credential storage belongs to the caller.
type UserRecord struct {
	UserID       int64
	Subject      string
	PasswordHash string
	Role         string
	Status       AccountStatus
}

// UserProvider is the interface callers implement to connect the engine
// to their user database. GetUserBySubject receives the normalized
// (trimmed, lowercased) subject and returns [ErrUserNotFound] when no
// account matches.
type UserProvider interface {
	GetUserBySubject(ctx context.Context, subject string) (UserRecord, error)
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh].
// AccessTTL reports the access token lifetime so HTTP layers can relay
// an expires-in value without re-parsing the token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess          = internalmetrics.MetricLoginSuccess
	MetricLoginFailure          = internalmetrics.MetricLoginFailure
	MetricLoginRateLimited      = internalmetrics.MetricLoginRateLimited
	MetricRefreshSuccess        = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure        = internalmetrics.MetricRefreshFailure
	MetricReplayDetected        = internalmetrics.MetricReplayDetected
	MetricRefreshRateLimited    = internalmetrics.MetricRefreshRateLimited
	MetricLogout                = internalmetrics.MetricLogout
	MetricLedgerUnavailable     = internalmetrics.MetricLedgerUnavailable
	MetricAuthenticateSuccess   = internalmetrics.MetricAuthenticateSuccess
	MetricAuthenticateAnonymous = internalmetrics.MetricAuthenticateAnonymous
	MetricAuthenticateLatency   = internalmetrics.MetricAuthenticateLatency

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
