package parcelauth

import "context"

// Logout revokes the refresh token's ledger record. It is best-effort:
// a token that fails verification (expired, malformed, already rotated)
// is treated as logged out and returns nil. Only a ledger outage is
// surfaced, so callers can still clear their cookie and retry.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.codec == nil || e.ledger == nil {
		return ErrEngineNotReady
	}

	claims, err := e.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if err := e.ledger.Revoke(ctx, claims.ID); err != nil {
		e.metricInc(MetricLedgerUnavailable)
		e.emitAudit(ctx, auditEventLedgerUnavailable, false, claims.Subject, claims.UserID, claims.ID, ErrStoreUnavailable, nil)
		return ErrStoreUnavailable
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.Subject, claims.UserID, claims.ID, nil, nil)

	return nil
}
