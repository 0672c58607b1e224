package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the backing store cannot be reached
// within the configured timeout. It is never folded into a "token invalid"
// signal: no state was invalidated and the caller may retry.
var ErrUnavailable = errors.New("revocation ledger unavailable")

const (
	defaultPrefix  = "RTJTI"
	defaultTimeout = 2 * time.Second
)

// Store tracks which refresh-token jtis are currently live. Existence of a
// key is the sole source of truth for "this refresh token has not been
// consumed or revoked"; the TTL mirrors the token's remaining lifetime so
// no entry outlives its token.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewStore creates a ledger on the given Redis client. An empty prefix
// defaults to "RTJTI"; a non-positive timeout defaults to 2s.
func NewStore(redisClient redis.UniversalClient, prefix string, timeout time.Duration) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		redis:   redisClient,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (s *Store) key(jti string) string {
	return s.prefix + ":" + jti
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Record marks jti as a live, unconsumed refresh token for userID. A second
// Record with the same jti overwrites the prior entry; jtis are unique per
// issuance so this only matters for crash-retry paths.
func (s *Store) Record(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ledger: non-positive ttl for jti %q", jti)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Set(ctx, s.key(jti), strconv.FormatInt(userID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether jti still has a live entry.
func (s *Store) Exists(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// Consume atomically deletes the entry and reports whether this caller
// removed it. Under concurrent refresh attempts with the same token, the
// single DEL round-trip guarantees exactly one caller observes true; the
// rest observe false and must treat the token as already spent.
func (s *Store) Consume(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	removed, err := s.redis.Del(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed > 0, nil
}

// Revoke deletes the entry if present. Revoking an absent jti is not an
// error; logout paths call this unconditionally.
func (s *Store) Revoke(ctx context.Context, jti string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Del(ctx, s.key(jti)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Owner returns the userID recorded for jti, or found=false when the entry
// is gone. Used by audit paths; never by the accept/reject decision, which
// is existence-only.
func (s *Store) Owner(ctx context.Context, jti string) (userID int64, found bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	raw, err := s.redis.Get(ctx, s.key(jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	userID, convErr := strconv.ParseInt(raw, 10, 64)
	if convErr != nil {
		return 0, false, nil
	}
	return userID, true, nil
}

// Ping verifies store reachability within the ledger timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
