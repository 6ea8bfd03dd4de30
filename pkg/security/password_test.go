package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestOpaqueTokenAndDigest(t *testing.T) {
	first, err := security.NewOpaqueToken(32)
	if err != nil {
		t.Fatalf("NewOpaqueToken returned error: %v", err)
	}
	second, err := security.NewOpaqueToken(32)
	if err != nil {
		t.Fatalf("NewOpaqueToken returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens")
	}
	if security.DigestToken(first) != security.DigestToken(first) {
		t.Fatal("digest must be deterministic")
	}
	if security.DigestToken(first) == first {
		t.Fatal("digest must not echo the token")
	}
	if _, err := security.NewOpaqueToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestSecretsEqual(t *testing.T) {
	if !security.SecretsEqual("cb-token", "cb-token") {
		t.Fatal("expected equal secrets to match")
	}
	if security.SecretsEqual("cb-token", "cb-tokem") {
		t.Fatal("expected mismatch")
	}
	if security.SecretsEqual("", "") {
		t.Fatal("empty expected secret must never match")
	}
}

func TestVerifyPasswordRejectsTamperedParams(t *testing.T) {
	cfg := config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	hash, err := security.HashPassword("pw-123456", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	cases := map[string]string{
		"version":   strings.Replace(hash, "v=19", "v=16", 1),
		"params":    strings.Replace(hash, "m=8192,t=1,p=1", "m=8192,t=x,p=1", 1),
		"zero time": strings.Replace(hash, "t=1", "t=0", 1),
		"algorithm": strings.Replace(hash, "argon2id", "argon2i", 1),
	}
	for name, tampered := range cases {
		if _, err := security.VerifyPassword("pw-123456", tampered); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("%s: expected ErrInvalidHash, got %v", name, err)
		}
	}
}

func TestHashPasswordClampsConfig(t *testing.T) {
	hash, err := security.HashPassword("pw-123456", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.Contains(hash, "$m=8,t=1,p=1$") {
		t.Fatalf("expected clamped params, got %s", hash)
	}
	ok, err := security.VerifyPassword("pw-123456", hash)
	if err != nil || !ok {
		t.Fatalf("expected clamped hash to verify, ok=%v err=%v", ok, err)
	}
}
