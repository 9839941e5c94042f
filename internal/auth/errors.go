package auth

import "errors"

// Failures surfaced by the authentication core. Handlers collapse all of them
// to a uniform 401 for clients; the distinct values exist for audit records
// and differentiated logging.
var (
	ErrBadCredentials    = errors.New("auth: bad credentials")
	ErrAccountDisabled   = errors.New("auth: account disabled")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrPrincipalNotFound = errors.New("auth: principal not found")
)

// Token decode failures. Each is wrapped in ErrInvalidToken semantics at the
// service boundary but kept distinguishable for telemetry.
var (
	ErrTokenMalformed   = errors.New("auth: token malformed")
	ErrTokenUnsupported = errors.New("auth: token unsupported")
	ErrTokenSignature   = errors.New("auth: token signature invalid")
	ErrTokenExpired     = errors.New("auth: token expired")
	ErrTokenClaims      = errors.New("auth: token claims invalid")
)
