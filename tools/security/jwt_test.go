package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundtrip(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))

	token, expireAt, err := Generate(opts, "user-42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expireAt.After(time.Now()) {
		t.Fatal("expiry must be in the future")
	}

	sub, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-42" {
		t.Fatalf("subject = %q, want user-42", sub)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, _, err := Generate(DefaultOptions([]byte("right")), "user-42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Verify(DefaultOptions([]byte("wrong")), token); err == nil {
		t.Fatal("wrong secret must fail verification")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	opts := DefaultOptions([]byte("test-secret"))
	// exp has second granularity, so a tiny TTL plus a short wait
	// yields an expired token
	opts.TTL = time.Millisecond
	token, _, err := Generate(opts, "user-42")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := Verify(opts, token); err == nil {
		t.Fatal("expired token must fail verification")
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := Verify(DefaultOptions([]byte("s")), "not.a.token"); err == nil {
		t.Fatal("garbage must fail verification")
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := DefaultOptions([]byte("s"))
	opts.Alg = "RS256"
	if _, _, err := Generate(opts, "u"); err == nil {
		t.Fatal("RS256 must be rejected")
	}
}
