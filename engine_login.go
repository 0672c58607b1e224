package parcelauth

import (
	"context"
	"errors"

	"github.com/capstone/parcelauth/internal/rate"
	"github.com/capstone/parcelauth/token"
)

// Login authenticates a subject/password pair and issues a fresh token
// pair. The refresh token's id is recorded in the revocation ledger for
// the full refresh lifetime.
//
// Unknown subjects, wrong passwords, and empty passwords all collapse to
// [ErrInvalidCredentials] so callers cannot probe for account existence.
// Disabled and locked accounts are reported distinctly because the
// caller already proved knowledge of the password.
func (e *Engine) Login(ctx context.Context, subject, pass string) (TokenPair, error) {
	if e == nil || e.codec == nil || e.userProvider == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	subject = token.NormalizeSubject(subject)
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, subject, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, subject, 0, "", ErrLoginRateLimited, nil)
				return TokenPair{}, ErrLoginRateLimited
			}
			// Degraded limiter backend never blocks login on its own.
		}
	}

	if pass == "" {
		return TokenPair{}, e.failLogin(ctx, subject, 0, ip, "empty_password")
	}

	user, err := e.userProvider.GetUserBySubject(ctx, subject)
	if err != nil {
		return TokenPair{}, e.failLogin(ctx, subject, 0, ip, "user_not_found")
	}

	ok, err := e.passwordHash.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, e.failLogin(ctx, subject, user.UserID, ip, "password_mismatch")
	}

	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, subject, user.UserID, "", statusErr, func() map[string]string {
			return map[string]string{"reason": "account_status"}
		})
		return TokenPair{}, statusErr
	}

	pair, refreshClaims, err := e.issuePair(ctx, subject, user.UserID)
	if err != nil {
		return TokenPair{}, err
	}

	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, subject, ip)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, subject, user.UserID, refreshClaims.ID, nil, nil)

	return pair, nil
}

func (e *Engine) failLogin(ctx context.Context, subject string, userID int64, ip, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, subject, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, subject, userID, "", ErrLoginRateLimited, nil)
			return ErrLoginRateLimited
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, userID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return ErrInvalidCredentials
}

// issuePair mints an access+refresh pair and records the refresh id in
// the ledger. A ledger write failure aborts the whole operation; a token
// pair must never leave the engine without its revocation record.
func (e *Engine) issuePair(ctx context.Context, subject string, userID int64) (TokenPair, *token.Claims, error) {
	access, err := e.codec.IssueAccess(subject, userID)
	if err != nil {
		return TokenPair{}, nil, err
	}

	refresh, claims, err := e.codec.IssueRefresh(subject, userID)
	if err != nil {
		return TokenPair{}, nil, err
	}

	if err := e.ledger.Record(ctx, claims.ID, userID, e.codec.RefreshTTL()); err != nil {
		e.metricInc(MetricLedgerUnavailable)
		e.emitAudit(ctx, auditEventLedgerUnavailable, false, subject, userID, claims.ID, ErrStoreUnavailable, nil)
		return TokenPair{}, nil, ErrStoreUnavailable
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    e.codec.AccessTTL(),
	}, claims, nil
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountLocked:
		return ErrAccountLocked
	default:
		return nil
	}
}
