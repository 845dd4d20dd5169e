package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-service/internal/auth"
)

func newTestCodec(t *testing.T, ttl time.Duration) *Codec {
	t.Helper()
	c, err := NewCodec("test-secret", "HS256", ttl)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestIssueAndVerify(t *testing.T) {
	c := newTestCodec(t, 30*time.Minute)
	now := time.Now().UTC()

	signed, exp, err := c.Issue("user-1", "alice", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if got, want := exp, now.Add(30*time.Minute); !got.Equal(want) {
		t.Fatalf("expiry = %v, want %v", got, want)
	}

	claims, err := c.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" {
		t.Fatalf("claims = %q/%q", claims.Subject, claims.Username)
	}
}

func TestVerifyExpired(t *testing.T) {
	c := newTestCodec(t, time.Minute)
	signed, _, err := c.Issue("user-1", "alice", time.Now().UTC().Add(-2*time.Minute))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := c.Verify(signed); !errors.Is(err, auth.ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	c := newTestCodec(t, time.Minute)
	other, _ := NewCodec("other-secret", "HS256", time.Minute)
	signed, _, _ := other.Issue("user-1", "alice", time.Now().UTC())
	if _, err := c.Verify(signed); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	c := newTestCodec(t, time.Minute)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := c.Verify(raw); !errors.Is(err, auth.ErrTokenInvalid) {
			t.Fatalf("Verify(%q) = %v, want ErrTokenInvalid", raw, err)
		}
	}
}

// A token without an exp claim is invalid outright, not non-expiring.
func TestVerifyMissingExpiry(t *testing.T) {
	c := newTestCodec(t, time.Minute)
	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "user-1",
		"username": "alice",
	})
	signed, err := noExp.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(signed); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

// Tokens signed with an unexpected algorithm must be rejected even when the
// signature would check out, so an attacker cannot downgrade to "none".
func TestVerifyWrongAlgorithm(t *testing.T) {
	c := newTestCodec(t, time.Minute)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(raw); !errors.Is(err, auth.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	if _, err := NewCodec("", "HS256", time.Minute); err == nil {
		t.Fatal("empty secret accepted")
	}
	if _, err := NewCodec("secret", "RS256", time.Minute); err == nil {
		t.Fatal("asymmetric algorithm accepted for symmetric codec")
	}
	if _, err := NewCodec("secret", "nonsense", time.Minute); err == nil {
		t.Fatal("unknown algorithm accepted")
	}
}
