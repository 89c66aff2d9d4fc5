package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected configured service for a 32 byte key")
	}

	sealed, err := svc.EncryptString("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if string(sealed) == "JBSWY3DPEHPK3PXP" {
		t.Fatal("ciphertext should not equal plaintext")
	}

	plain, err := svc.DecryptString(sealed)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if plain != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("round trip mismatch: %q", plain)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := svc.DecryptString(sealed); err == nil {
		t.Fatal("expected tampered ciphertext to fail")
	}
}

func TestPassthroughWithoutKey(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if svc.Configured() {
		t.Fatal("empty key should leave the service unconfigured")
	}

	sealed, err := svc.EncryptString("seed")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if string(sealed) != "seed" {
		t.Fatalf("expected passthrough, got %q", sealed)
	}
	plain, err := svc.DecryptString(sealed)
	if err != nil || plain != "seed" {
		t.Fatalf("expected passthrough decrypt, got %q %v", plain, err)
	}
}

func TestKeyDecoding(t *testing.T) {
	// 64 hex characters decode to 32 bytes.
	if _, err := New(strings.Repeat("0f", 32)); err != nil {
		t.Fatalf("hex key rejected: %v", err)
	}
	// Not valid hex or base64, but exactly 32 raw bytes.
	if _, err := New("0123456789abcdef0123456789abcde!"); err != nil {
		t.Fatalf("raw key rejected: %v", err)
	}
	if _, err := New("short"); err == nil {
		t.Fatal("expected short key to be rejected")
	}
}

func TestEmptyValues(t *testing.T) {
	svc, err := New(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sealed, err := svc.EncryptString("")
	if err != nil || sealed != nil {
		t.Fatalf("empty plaintext should seal to nil, got %v %v", sealed, err)
	}
	plain, err := svc.DecryptString(nil)
	if err != nil || plain != "" {
		t.Fatalf("nil ciphertext should open to empty, got %q %v", plain, err)
	}
}
