package parcelauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// testClock is a mutable time source threaded through WithClock so tests
// can cross expiry boundaries without sleeping.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	// jwt timestamps carry second precision; start on a whole second so
	// advancing by exact TTLs lands where expected.
	return &testClock{now: time.Now().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLoginIssuesVerifiablePair(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)

	pair, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if pair.AccessToken == pair.RefreshToken {
		t.Fatal("access and refresh tokens must differ")
	}
	if pair.AccessTTL != cfg.Token.AccessTTL {
		t.Fatalf("expected AccessTTL %v, got %v", cfg.Token.AccessTTL, pair.AccessTTL)
	}

	identity, err := engine.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.Subject != "alice@example.com" {
		t.Fatalf("expected subject alice@example.com, got %q", identity.Subject)
	}
	if identity.UserID != 42 {
		t.Fatalf("expected userID 42, got %d", identity.UserID)
	}
}

func TestLoginNormalizesSubject(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)

	pair, err := engine.Login(context.Background(), "  Alice@Example.COM ", testPassword)
	if err != nil {
		t.Fatalf("login with unnormalized subject failed: %v", err)
	}

	identity, err := engine.Authenticate(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if identity.Subject != "alice@example.com" {
		t.Fatalf("expected normalized subject, got %q", identity.Subject)
	}
}

func TestLoginFailuresCollapseToInvalidCredentials(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	cases := []struct {
		name    string
		subject string
		pass    string
	}{
		{"unknown subject", "nobody@example.com", testPassword},
		{"wrong password", "alice@example.com", "not-the-password"},
		{"empty password", "alice@example.com", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Login(ctx, tc.subject, tc.pass)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginReportsAccountStatusDistinctly(t *testing.T) {
	cfg := testConfig()
	hash := testHash(t, cfg, testPassword)

	up := &mockUserProvider{
		users: map[string]UserRecord{
			"disabled@example.com": {
				UserID:       7,
				Subject:      "disabled@example.com",
				PasswordHash: hash,
				Status:       AccountDisabled,
			},
			"locked@example.com": {
				UserID:       8,
				Subject:      "locked@example.com",
				PasswordHash: hash,
				Status:       AccountLocked,
			},
		},
	}
	engine, _ := newTestEngine(t, cfg, up, nil)
	ctx := context.Background()

	if _, err := engine.Login(ctx, "disabled@example.com", testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if _, err := engine.Login(ctx, "locked@example.com", testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	// Wrong password on a disabled account must not reveal the status.
	if _, err := engine.Login(ctx, "disabled@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password on disabled account, got %v", err)
	}
}

func TestLoginLedgerOutageAbortsWithStoreUnavailable(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)

	mr.Close()

	_, err := engine.Login(context.Background(), "alice@example.com", testPassword)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRefreshRotatesAndInvalidatesOldToken(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	rotated, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a fresh refresh token after rotation")
	}
	if rotated.AccessToken == "" {
		t.Fatal("expected a fresh access token after rotation")
	}

	// The consumed token is dead even though its signature and expiry
	// are still valid.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for replayed token, got %v", err)
	}

	// The rotated token still works.
	if _, err := engine.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("refresh of rotated token failed: %v", err)
	}
}

func TestRefreshRejectsGarbageAndAccessTokens(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	for _, tok := range []string{"", "garbage", "a.b.c", pair.AccessToken} {
		if _, err := engine.Refresh(ctx, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", tok, err)
		}
	}
}

func TestRefreshLedgerOutageIsRetryable(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	mr.Close()
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	// The outage did not consume the token: once the backend returns it
	// must still rotate.
	if err := mr.Restart(); err != nil {
		t.Fatalf("restart miniredis: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh after backend recovery failed: %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLogoutIsBestEffort(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if err := engine.Logout(ctx, tok); err != nil {
			t.Fatalf("expected nil for unverifiable token %q, got %v", tok, err)
		}
	}

	// Double logout: the second call targets a missing ledger entry,
	// which is still a success.
	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("first logout failed: %v", err)
	}
	if err := engine.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
}

func TestLogoutLedgerOutageSurfaced(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	mr.Close()
	if err := engine.Logout(ctx, pair.RefreshToken); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := engine.Authenticate(ctx, pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for refresh token on access path, got %v", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := engine.Authenticate(context.Background(), tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for %q, got %v", tok, err)
		}
	}
}

func TestTokenExpiryAcrossClock(t *testing.T) {
	cfg := testConfig()
	clock := newTestClock()

	_, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(singleUserProvider(t, cfg)).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Cross the access expiry plus leeway: the access token dies but the
	// refresh token still rotates.
	clock.Advance(cfg.Token.AccessTTL + cfg.Token.Leeway + time.Minute)

	if _, err := engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired access token, got %v", err)
	}

	rotated, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh after access expiry failed: %v", err)
	}

	// Cross the refresh expiry too: rotation stops entirely.
	clock.Advance(cfg.Token.RefreshTTL + cfg.Token.Leeway + time.Minute)

	if _, err := engine.Refresh(ctx, rotated.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired refresh token, got %v", err)
	}
}

func TestLoginRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3

	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	for i := 0; i < cfg.Security.MaxLoginAttempts; i++ {
		if _, err := engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Budget exhausted: the next failure reports the limit.
	if _, err := engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	// Even the correct password is refused while throttled.
	if _, err := engine.Login(ctx, "alice@example.com", testPassword); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited for correct password while throttled, got %v", err)
	}

	// Other subjects are unaffected.
	if _, err := engine.Login(ctx, "nobody@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unrelated subject, got %v", err)
	}
}

func TestLoginSuccessResetsAttemptCounter(t *testing.T) {
	cfg := testConfig()
	cfg.Security.MaxLoginAttempts = 3

	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	}
	if _, err := engine.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("login within budget failed: %v", err)
	}

	// The counter was reset: a fresh budget applies.
	for i := 0; i < cfg.Security.MaxLoginAttempts; i++ {
		if _, err := engine.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("post-reset attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
}

func TestRefreshRateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableRefreshThrottle = true
	cfg.Security.MaxRefreshAttempts = 1

	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	// Hammering the same consumed token hits the per-jti budget before
	// the ledger is ever consulted.
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrRefreshRateLimited) {
		t.Fatalf("expected ErrRefreshRateLimited, got %v", err)
	}
}

func TestEngineHealth(t *testing.T) {
	cfg := testConfig()
	engine, mr := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	if err := engine.Health(ctx); err != nil {
		t.Fatalf("expected healthy engine, got %v", err)
	}

	mr.Close()
	if err := engine.Health(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestEngineMetricsCounters(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true

	engine, _ := newTestEngine(t, cfg, singleUserProvider(t, cfg), nil)
	ctx := context.Background()

	pair, err := engine.Login(ctx, "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _ = engine.Login(ctx, "alice@example.com", "wrong")

	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = engine.Refresh(ctx, pair.RefreshToken) // replay

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricLoginSuccess:   1,
		MetricLoginFailure:   1,
		MetricRefreshSuccess: 1,
		MetricReplayDetected: 1,
	}
	for id, want := range expect {
		if got := snap.Counters[id]; got != want {
			t.Fatalf("counter %d: expected %d, got %d", id, want, got)
		}
	}
}
