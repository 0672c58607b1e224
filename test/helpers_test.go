//go:build integration
// +build integration

package test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	parcelauth "github.com/capstone/parcelauth"
	"github.com/capstone/parcelauth/password"
)

const seededPassword = "correct-password-123"

type seededProvider struct {
	user parcelauth.UserRecord
}

func (p *seededProvider) GetUserBySubject(_ context.Context, subject string) (parcelauth.UserRecord, error) {
	if subject != p.user.Subject {
		return parcelauth.UserRecord{}, parcelauth.ErrUserNotFound
	}
	return p.user, nil
}

func newIntegrationEngine(t *testing.T, mutate func(*parcelauth.Config)) (*parcelauth.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := parcelauth.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	if mutate != nil {
		mutate(&cfg)
	}

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
	hash, err := hasher.Hash(seededPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	engine, err := parcelauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(&seededProvider{
			user: parcelauth.UserRecord{
				UserID:       42,
				Subject:      "alice@example.com",
				PasswordHash: hash,
				Status:       parcelauth.AccountActive,
			},
		}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}
