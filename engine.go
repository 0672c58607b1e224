package parcelauth

import (
	"context"
	"time"

	internalaudit "github.com/capstone/parcelauth/internal/audit"
	"github.com/capstone/parcelauth/internal/rate"
	"github.com/capstone/parcelauth/ledger"
	"github.com/capstone/parcelauth/password"
	"github.com/capstone/parcelauth/token"
)

// Engine is the session lifecycle coordinator. Construct it through
// [Builder.Build]; all methods are safe for concurrent use afterwards.
type Engine struct {
	config       Config
	codec        *token.Codec
	ledger       *ledger.Store
	rateLimiter  *rate.Limiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	userProvider UserProvider
}

// Close flushes and stops the audit dispatcher. The engine must not be
// used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Health checks connectivity to the revocation ledger. A failure means
// Login, Refresh, and Logout will return [ErrStoreUnavailable].
func (e *Engine) Health(ctx context.Context) error {
	if e == nil || e.ledger == nil {
		return ErrEngineNotReady
	}
	if err := e.ledger.Ping(ctx); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// AccessTTL reports the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil || e.codec == nil {
		return 0
	}
	return e.codec.AccessTTL()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
