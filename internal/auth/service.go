package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smallcrm.org/internal/obs"
)

// Activity action codes emitted by the authentication flows.
const (
	ActionUserLogin      = "USER_LOGIN"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionTokenRefreshed = "TOKEN_REFRESHED"
	ActionRefreshFailed  = "REFRESH_FAILED"
)

// Recorder persists audit events. Records must be durable independent of the
// surrounding operation: a failed login still leaves a record behind.
type Recorder interface {
	Record(ctx context.Context, actor, action, details string)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service coordinates credential verification, principal resolution and token
// issuance. Tokens are stateless; the service holds no per-request state.
type Service struct {
	users         UserStore
	codec         *Codec
	activity      Recorder
	rotateRefresh bool
	now           func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithRefreshRotation makes Refresh issue a new refresh token instead of
// echoing the presented one, limiting the blast radius of a leaked token.
func WithRefreshRotation(enabled bool) ServiceOption {
	return func(s *Service) { s.rotateRefresh = enabled }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authentication service.
func NewService(users UserStore, codec *Codec, activity Recorder, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	if activity == nil {
		return nil, errors.New("auth: activity recorder is required")
	}
	s := &Service{
		users:    users,
		codec:    codec,
		activity: activity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login verifies the credentials and issues a fresh token pair. Every outcome
// produces exactly one activity record before the call returns. Disabled
// accounts fail even with correct credentials; the caller surfaces the same
// 401 for both failure kinds.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.activity.Record(ctx, attemptedActor(username), ActionLoginFailed, "missing credentials")
		obs.CountLogin("bad_credentials")
		return TokenPair{}, ErrBadCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.activity.Record(ctx, username, ActionLoginFailed, fmt.Sprintf("invalid credentials for user %s", username))
		obs.CountLogin("bad_credentials")
		return TokenPair{}, ErrBadCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.activity.Record(ctx, username, ActionLoginFailed, fmt.Sprintf("invalid credentials for user %s", username))
		obs.CountLogin("bad_credentials")
		return TokenPair{}, ErrBadCredentials
	}
	if !user.Active {
		s.activity.Record(ctx, username, ActionLoginFailed, fmt.Sprintf("account disabled for user %s", username))
		obs.CountLogin("account_disabled")
		return TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issuePair(user.Username)
	if err != nil {
		s.activity.Record(ctx, username, ActionLoginFailed, "token issuance failed")
		return TokenPair{}, err
	}

	s.activity.Record(ctx, user.Username, ActionUserLogin, fmt.Sprintf("user %s logged in", user.Username))
	obs.CountLogin("success")
	return pair, nil
}

// Refresh decodes the refresh token, re-resolves the principal and issues a
// new access token. By default the presented refresh token is echoed back;
// with rotation enabled a new one replaces it. Any decode, resolution or
// subject failure collapses to ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.Decode(TokenRefresh, refreshToken)
	if err != nil {
		obs.CountTokenDecodeFailure(DecodeFailureReason(err))
		s.activity.Record(ctx, "UNKNOWN", ActionRefreshFailed, "invalid refresh token presented")
		return TokenPair{}, ErrInvalidToken
	}

	principal, err := s.ResolvePrincipal(ctx, claims.Subject)
	if err != nil {
		s.activity.Record(ctx, claims.Subject, ActionRefreshFailed, fmt.Sprintf("refresh token for unknown or disabled user %s", claims.Subject))
		return TokenPair{}, ErrInvalidToken
	}
	if principal.Username != claims.Subject {
		s.activity.Record(ctx, claims.Subject, ActionRefreshFailed, "refresh token subject mismatch")
		return TokenPair{}, ErrInvalidToken
	}

	now := s.now().UTC()
	accessToken, accessExp, err := s.codec.Issue(TokenAccess, principal.Username, now)
	if err != nil {
		s.activity.Record(ctx, principal.Username, ActionRefreshFailed, "token issuance failed")
		return TokenPair{}, err
	}

	pair := TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: claims.ExpiresAt,
	}
	if s.rotateRefresh {
		rotated, rotatedExp, err := s.codec.Issue(TokenRefresh, principal.Username, now)
		if err != nil {
			s.activity.Record(ctx, principal.Username, ActionRefreshFailed, "token issuance failed")
			return TokenPair{}, err
		}
		pair.RefreshToken = rotated
		pair.RefreshExpiresAt = rotatedExp
	}

	s.activity.Record(ctx, principal.Username, ActionTokenRefreshed, fmt.Sprintf("access token refreshed for user %s", principal.Username))
	return pair, nil
}

// ResolvePrincipal loads the identity and role for a username. Unknown and
// disabled users produce the same ErrPrincipalNotFound so that callers cannot
// distinguish the two cases.
func (s *Service) ResolvePrincipal(ctx context.Context, username string) (Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Principal{}, ErrPrincipalNotFound
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return Principal{}, ErrPrincipalNotFound
	}
	if !user.Active {
		return Principal{}, ErrPrincipalNotFound
	}
	return Principal{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Active:   user.Active,
	}, nil
}

// AuthenticateToken validates an access token and returns the resolved
// principal. Used by the request interceptor on every inbound request.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.codec.Decode(TokenAccess, token)
	if err != nil {
		obs.CountTokenDecodeFailure(DecodeFailureReason(err))
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	principal, err := s.ResolvePrincipal(ctx, claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if principal.Username != claims.Subject {
		return Principal{}, ErrInvalidToken
	}
	return principal, nil
}

func (s *Service) issuePair(subject string) (TokenPair, error) {
	now := s.now().UTC()
	accessToken, accessExp, err := s.codec.Issue(TokenAccess, subject, now)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, refreshExp, err := s.codec.Issue(TokenRefresh, subject, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func attemptedActor(username string) string {
	if username == "" {
		return "UNKNOWN"
	}
	return username
}
