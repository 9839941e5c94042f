package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "smallcrm"

// TokenKind selects the signing key and lifetime for a token.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenClaims is the decoded, verified content of a token.
type TokenClaims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec issues and verifies signed, time-bounded identity tokens. Access and
// refresh tokens are signed with distinct HS256 secrets; verification under
// the wrong kind always fails at the signature check.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec constructs a Codec. Both secrets are required and must differ.
func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, opts ...CodecOption) (*Codec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("auth: token TTLs must be positive")
	}
	c := &Codec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        defaultIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured lifetime for the given kind.
func (c *Codec) TTL(kind TokenKind) time.Duration {
	if kind == TokenRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) secret(kind TokenKind) []byte {
	if kind == TokenRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

// Issue builds a signed token for the subject with expiry now + ttl(kind).
func (c *Codec) Issue(kind TokenKind, subject string, now time.Time) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, errors.New("auth: subject is required")
	}
	if now.IsZero() {
		now = c.now()
	}
	now = now.UTC()
	expiresAt := now.Add(c.TTL(kind))

	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

// Decode verifies the token under the kind's secret and returns its claims.
// Failures are one of ErrTokenMalformed, ErrTokenUnsupported,
// ErrTokenSignature, ErrTokenExpired, ErrTokenClaims.
func (c *Codec) Decode(kind TokenKind, token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenUnsupported
		}
		return c.secret(kind), nil
	}, jwt.WithTimeFunc(c.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return TokenClaims{}, classifyDecodeError(err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return TokenClaims{}, ErrTokenClaims
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return TokenClaims{}, ErrTokenClaims
	}
	if claims.Issuer != c.issuer {
		return TokenClaims{}, ErrTokenClaims
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return TokenClaims{}, ErrTokenClaims
	}
	return TokenClaims{
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IsExpired reports whether the token is past its expiry. Any decode failure
// counts as expired: ambiguous tokens are never treated as valid.
func (c *Codec) IsExpired(kind TokenKind, token string) bool {
	claims, err := c.Decode(kind, token)
	if err != nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt)
}

// classifyDecodeError maps jwt/v5 parse failures onto the codec's error
// taxonomy. Expiry is checked before the generic claims bucket because the
// library joins ErrTokenExpired under ErrTokenInvalidClaims.
func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, ErrTokenUnsupported), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenUnsupported
	default:
		return ErrTokenClaims
	}
}

// DecodeFailureReason returns a short machine-readable label for telemetry.
func DecodeFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenUnsupported):
		return "unsupported"
	case errors.Is(err, ErrTokenSignature):
		return "signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenClaims):
		return "claims"
	default:
		return "unknown"
	}
}
