package parcelauth

import (
	"context"
	"time"
)

// Authenticate verifies a bearer access token and returns the caller's
// identity. It is the hot path: signature and expiry checks happen
// locally and the revocation ledger is never consulted. All failures
// collapse to [ErrUnauthorized].
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	if e == nil || e.codec == nil {
		return Identity{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := e.codec.VerifyAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthenticateAnonymous)
		return Identity{}, ErrUnauthorized
	}

	e.metricInc(MetricAuthenticateSuccess)
	if !start.IsZero() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}

	return Identity{
		Subject: claims.Subject,
		UserID:  claims.UserID,
	}, nil
}
