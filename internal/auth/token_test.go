package auth

import (
	"errors"
	"testing"
	"time"
)

func testCodec(t *testing.T, now func() time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(
		[]byte("access-secret-for-tests"), []byte("refresh-secret-for-tests"),
		time.Hour, 168*time.Hour,
		WithCodecClock(now),
	)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return t0 })

	for _, kind := range []TokenKind{TokenAccess, TokenRefresh} {
		token, expiresAt, err := c.Issue(kind, "alice", t0)
		if err != nil {
			t.Fatalf("Issue(%s): %v", kind, err)
		}
		if !expiresAt.Equal(t0.Add(c.TTL(kind))) {
			t.Fatalf("Issue(%s): expiry %v, want %v", kind, expiresAt, t0.Add(c.TTL(kind)))
		}
		claims, err := c.Decode(kind, token)
		if err != nil {
			t.Fatalf("Decode(%s): %v", kind, err)
		}
		if claims.Subject != "alice" {
			t.Fatalf("Decode(%s): subject %q", kind, claims.Subject)
		}
	}
}

func TestCodecKeySeparation(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return t0 })

	access, _, err := c.Issue(TokenAccess, "alice", t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.Decode(TokenRefresh, access); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("access token under refresh key: got %v, want ErrTokenSignature", err)
	}

	refresh, _, err := c.Issue(TokenRefresh, "alice", t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.Decode(TokenAccess, refresh); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("refresh token under access key: got %v, want ErrTokenSignature", err)
	}
}

func TestCodecExpiry(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := t0
	c := testCodec(t, func() time.Time { return current })

	token, _, err := c.Issue(TokenAccess, "alice", t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Still valid one second before the TTL elapses.
	current = t0.Add(time.Hour - time.Second)
	if _, err := c.Decode(TokenAccess, token); err != nil {
		t.Fatalf("Decode before expiry: %v", err)
	}
	if c.IsExpired(TokenAccess, token) {
		t.Fatal("IsExpired before expiry")
	}

	current = t0.Add(time.Hour + time.Second)
	if _, err := c.Decode(TokenAccess, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Decode after expiry: got %v, want ErrTokenExpired", err)
	}
	if !c.IsExpired(TokenAccess, token) {
		t.Fatal("IsExpired after expiry")
	}
}

func TestCodecDecodeFailureTaxonomy(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := testCodec(t, func() time.Time { return t0 })

	tests := []struct {
		name   string
		token  string
		want   error
		reason string
	}{
		{"empty", "", ErrTokenMalformed, "malformed"},
		{"garbage", "not-a-token", ErrTokenMalformed, "malformed"},
		{"two segments", "abc.def", ErrTokenMalformed, "malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(TokenAccess, tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%q): got %v, want %v", tt.token, err, tt.want)
			}
			if got := DecodeFailureReason(err); got != tt.reason {
				t.Fatalf("DecodeFailureReason: got %q, want %q", got, tt.reason)
			}
		})
	}

	// Tampered signature on an otherwise valid token.
	token, _, err := c.Issue(TokenAccess, "alice", t0)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	tail := "AA"
	if token[len(token)-2:] == tail {
		tail = "BB"
	}
	tampered := token[:len(token)-2] + tail
	if _, err := c.Decode(TokenAccess, tampered); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("tampered token: got %v, want ErrTokenSignature", err)
	}
	if got := DecodeFailureReason(ErrTokenSignature); got != "signature" {
		t.Fatalf("DecodeFailureReason: got %q", got)
	}
}

func TestNewCodecRejectsSharedSecret(t *testing.T) {
	if _, err := NewCodec([]byte("same"), []byte("same"), time.Hour, time.Hour); err == nil {
		t.Fatal("expected error for identical secrets")
	}
	if _, err := NewCodec(nil, []byte("refresh"), time.Hour, time.Hour); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewCodec([]byte("a"), []byte("b"), 0, time.Hour); err == nil {
		t.Fatal("expected error for zero TTL")
	}
}
