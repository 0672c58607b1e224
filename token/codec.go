package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates the two credential classes. A token of one kind is
// never accepted where the other is required.
type Kind string

const (
	// KindAccess marks short-lived bearer credentials.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived single-use rotation credentials.
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed is returned when the input is not a well-formed token of
	// this system.
	ErrMalformed = errors.New("token malformed")
	// ErrSignature is returned when the token is structurally valid but its
	// signature does not verify against the configured secret.
	ErrSignature = errors.New("token signature invalid")
	// ErrExpired is returned when the token's expiry has passed. The
	// signature was valid; the caller may be able to refresh.
	ErrExpired = errors.New("token expired")
	// ErrWrongKind is returned by the kind-gated verify helpers when a valid
	// token of the opposite kind is presented.
	ErrWrongKind = errors.New("token kind mismatch")
)

const minSecretBytes = 32

// Config holds the process-wide signing parameters. The secret is loaded
// once at startup and never rotated at runtime.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration

	// Now overrides the wall clock for both issuance and verification.
	// Nil means time.Now. Tests use this to cross expiry boundaries
	// without sleeping.
	Now func() time.Time
}

// Claims is the fixed claim set carried by every token. There is no open
// claim map: a missing or mistyped field fails signature-checked decoding
// instead of surfacing later as a nil lookup.
type Claims struct {
	UserID int64 `json:"uid"`
	Kind   Kind  `json:"typ"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed tokens. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	config Config
	now    func() time.Time
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{config: cfg, now: now}, nil
}

// NormalizeSubject lowercases and trims an email-like identifier so that
// equality is case- and whitespace-insensitive. Issuance normalizes once;
// verification never re-normalizes.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// IssueAccess mints a signed access token for the subject. The jti is a
// fresh random UUID on every call.
func (c *Codec) IssueAccess(subject string, userID int64) (string, error) {
	signed, _, err := c.issue(subject, userID, KindAccess, c.config.AccessTTL)
	return signed, err
}

// IssueRefresh mints a signed refresh token for the subject with a fresh
// jti and returns the claims alongside: the caller must record the jti in
// the revocation ledger before handing the token out.
func (c *Codec) IssueRefresh(subject string, userID int64) (string, *Claims, error) {
	return c.issue(subject, userID, KindRefresh, c.config.RefreshTTL)
}

func (c *Codec) issue(subject string, userID int64, kind Kind, ttl time.Duration) (string, *Claims, error) {
	now := c.now()

	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   NormalizeSubject(subject),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// Verify checks the signature and expiry and returns the decoded claims.
// Failures are classified as [ErrMalformed], [ErrSignature], or
// [ErrExpired]; nothing else escapes. The only ambient input is the clock.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, ErrMalformed
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrMalformed
	}

	return claims, nil
}

// VerifyAccess verifies and additionally requires kind=access.
func (c *Codec) VerifyAccess(tokenStr string) (*Claims, error) {
	return c.verifyKind(tokenStr, KindAccess)
}

// VerifyRefresh verifies and additionally requires kind=refresh.
func (c *Codec) VerifyRefresh(tokenStr string) (*Claims, error) {
	return c.verifyKind(tokenStr, KindRefresh)
}

func (c *Codec) verifyKind(tokenStr string, kind Kind) (*Claims, error) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration {
	return c.config.AccessTTL
}

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration {
	return c.config.RefreshTTL
}

// RemainingTTL reports how long the claims stay valid from the codec's
// current clock, clamped at zero.
func (c *Codec) RemainingTTL(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
