package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustCodec(t *testing.T, secret string, ttl time.Duration) *Codec {
	t.Helper()
	c, err := NewCodec(secret, "HS256", "authkit", ttl)
	if err != nil {
		t.Fatalf("NewCodec err: %v", err)
	}
	return c
}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()
	if _, err := NewCodec("", "HS256", "", time.Minute); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewCodec("s3cret", "RS256", "", time.Minute); err == nil {
		t.Fatalf("expected error for non-HMAC alg")
	}
	if _, err := NewCodec("s3cret", "none", "", time.Minute); err == nil {
		t.Fatalf("expected error for alg none")
	}
	if _, err := NewCodec("s3cret", "HS256", "", 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	for _, alg := range []string{"HS256", "HS384", "HS512", "hs256"} {
		if _, err := NewCodec("s3cret", alg, "", time.Minute); err != nil {
			t.Fatalf("alg %s should be accepted: %v", alg, err)
		}
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, "un-secreto-razonable", 15*time.Minute)
	jti := uuid.NewString()
	now := time.Now()

	raw, exp, err := c.Sign("user-123", jti, now)
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	if got, want := exp.Unix(), now.Add(15*time.Minute).Unix(); got != want {
		t.Fatalf("exp mismatch: got %d want %d", got, want)
	}

	cl, err := c.Verify(raw)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if cl.UserID != "user-123" || cl.ID != jti {
		t.Fatalf("claims mismatch: %+v", cl)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	a := mustCodec(t, "secreto-access", time.Minute)
	b := mustCodec(t, "secreto-refresh", time.Minute)

	raw, _, err := a.Sign("u1", uuid.NewString(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Verify(raw); err != ErrInvalid {
		t.Fatalf("cross-codec verify: want ErrInvalid, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, "s3cret", time.Minute)
	// Firmado hace 10 minutos con TTL de 1m: fuera incluso del leeway.
	raw, _, err := c.Sign("u1", uuid.NewString(), time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Verify(raw); err != ErrInvalid {
		t.Fatalf("expired token: want ErrInvalid, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, "s3cret", time.Minute)
	for _, raw := range []string{"", "  ", "not-a-jwt", "a.b.c"} {
		if _, err := c.Verify(raw); err != ErrInvalid {
			t.Fatalf("%q: want ErrInvalid, got %v", raw, err)
		}
	}
}

func TestSign_RequiresSubjectAndJTI(t *testing.T) {
	t.Parallel()
	c := mustCodec(t, "s3cret", time.Minute)
	if _, _, err := c.Sign("", uuid.NewString(), time.Now()); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	if _, _, err := c.Sign("u1", "", time.Now()); err == nil {
		t.Fatalf("expected error for empty jti")
	}
}
