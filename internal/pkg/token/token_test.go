package token

import (
	"encoding/hex"
	"testing"
)

func TestNewVerificationToken(t *testing.T) {
	tok, err := NewVerificationToken()
	if err != nil {
		t.Fatalf("NewVerificationToken: %v", err)
	}
	if len(tok) != VerificationTokenLength {
		t.Fatalf("token length = %d, want %d", len(tok), VerificationTokenLength)
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}

	other, err := NewVerificationToken()
	if err != nil {
		t.Fatalf("NewVerificationToken: %v", err)
	}
	if tok == other {
		t.Fatal("two generated tokens are identical")
	}
}

func TestUnsubscribeSignatureNormalizesEmail(t *testing.T) {
	a := UnsubscribeSignature("s3cret", "User@Example.com")
	b := UnsubscribeSignature("s3cret", "  user@example.com ")
	if a != b {
		t.Fatalf("signatures differ for equivalent addresses: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("signature length = %d, want 64", len(a))
	}
}

func TestUnsubscribeSignatureDependsOnSecret(t *testing.T) {
	a := UnsubscribeSignature("secret-one", "user@example.com")
	b := UnsubscribeSignature("secret-two", "user@example.com")
	if a == b {
		t.Fatal("different secrets produced the same signature")
	}
}

func TestVerifyUnsubscribeSignature(t *testing.T) {
	sig := UnsubscribeSignature("s3cret", "user@example.com")

	if !VerifyUnsubscribeSignature("s3cret", "user@example.com", sig) {
		t.Fatal("valid signature rejected")
	}
	if !VerifyUnsubscribeSignature("s3cret", "USER@example.com", sig) {
		t.Fatal("signature for differently cased address rejected")
	}
	if VerifyUnsubscribeSignature("s3cret", "other@example.com", sig) {
		t.Fatal("signature accepted for wrong address")
	}

	// Swap two characters, keeping length and charset intact.
	tampered := []byte(sig)
	tampered[0], tampered[1] = tampered[1], tampered[0]
	if string(tampered) != sig && VerifyUnsubscribeSignature("s3cret", "user@example.com", string(tampered)) {
		t.Fatal("tampered signature accepted")
	}
	if VerifyUnsubscribeSignature("s3cret", "user@example.com", "") {
		t.Fatal("empty signature accepted")
	}
}
