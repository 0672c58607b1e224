package parcelauth

import (
	"context"
	"errors"

	"github.com/capstone/parcelauth/internal/rate"
)

// Refresh rotates a refresh token: the presented token's id is atomically
// consumed from the ledger before any new token is minted, so a token
// replayed concurrently produces exactly one winner. Every verification
// or ledger-miss failure collapses to [ErrUnauthorized]; only a ledger
// outage is reported distinctly as [ErrStoreUnavailable].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.codec == nil || e.ledger == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.codec.VerifyRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", 0, "", ErrUnauthorized, func() map[string]string {
			return map[string]string{"reason": "verify_failed"}
		})
		return TokenPair{}, ErrUnauthorized
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, claims.ID); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRefreshRateLimited)
				e.emitAudit(ctx, auditEventRefreshRateLimited, false, claims.Subject, claims.UserID, claims.ID, ErrRefreshRateLimited, nil)
				return TokenPair{}, ErrRefreshRateLimited
			}
		}
	}

	// Consume before issue. DEL reports whether this caller removed the
	// record, so only one of N racing holders proceeds.
	removed, err := e.ledger.Consume(ctx, claims.ID)
	if err != nil {
		e.metricInc(MetricLedgerUnavailable)
		e.emitAudit(ctx, auditEventLedgerUnavailable, false, claims.Subject, claims.UserID, claims.ID, ErrStoreUnavailable, nil)
		return TokenPair{}, ErrStoreUnavailable
	}
	if !removed {
		e.metricInc(MetricReplayDetected)
		e.emitAudit(ctx, auditEventRefreshReplay, false, claims.Subject, claims.UserID, claims.ID, ErrUnauthorized, nil)
		return TokenPair{}, ErrUnauthorized
	}

	pair, newClaims, err := e.issuePair(ctx, claims.Subject, claims.UserID)
	if err != nil {
		return TokenPair{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claims.Subject, claims.UserID, newClaims.ID, nil, func() map[string]string {
		return map[string]string{"rotated_from": claims.ID}
	})

	return pair, nil
}
