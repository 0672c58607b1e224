package parcelauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/capstone/parcelauth/password"
)

const testPassword = "correct-password-123"

// newTestRedis spins up an in-process Redis and a client pointed at it.
// Callers that need to simulate an outage or advance TTLs keep the
// miniredis handle.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

// testConfig returns a valid config with Argon2 parameters turned down
// so password hashing does not dominate test time.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func testHash(t *testing.T, cfg Config, plain string) string {
	t.Helper()

	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

type mockUserProvider struct {
	users map[string]UserRecord
	err   error
}

func (m *mockUserProvider) GetUserBySubject(_ context.Context, subject string) (UserRecord, error) {
	if m.err != nil {
		return UserRecord{}, m.err
	}
	user, ok := m.users[subject]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

// singleUserProvider builds a provider holding one active account,
// alice@example.com / testPassword, userID 42.
func singleUserProvider(t *testing.T, cfg Config) *mockUserProvider {
	t.Helper()

	return &mockUserProvider{
		users: map[string]UserRecord{
			"alice@example.com": {
				UserID:       42,
				Subject:      "alice@example.com",
				PasswordHash: testHash(t, cfg, testPassword),
				Role:         "sorter",
				Status:       AccountActive,
			},
		},
	}
}

// newTestEngine wires an engine against miniredis. The returned
// miniredis handle lets tests kill the backend mid-flight.
func newTestEngine(t *testing.T, cfg Config, up UserProvider, sink AuditSink) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}
