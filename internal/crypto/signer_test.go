package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestHMACSignerRoundTrip(t *testing.T) {
	signer, err := NewHMACSigner("mac-key", []byte("secret"))
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	sig, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "hmac:") {
		t.Fatalf("unexpected signature form: %s", sig)
	}
	if !signer.Verify([]byte("payload"), sig) {
		t.Fatal("valid signature rejected")
	}
	if signer.Verify([]byte("tampered"), sig) {
		t.Fatal("tampered payload accepted")
	}
}

func TestHMACSignerEmptyKey(t *testing.T) {
	if _, err := NewHMACSigner("k", nil); err != ErrEmptyMACKey {
		t.Fatalf("expected ErrEmptyMACKey, got %v", err)
	}
}

func TestEd25519SignerRoundTrip(t *testing.T) {
	seed := bytes.Repeat([]byte{0x02}, 32)
	priv, _, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}

	signer := NewEd25519Signer("ed-key", priv)
	sig, err := signer.Sign([]byte("payload"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.HasPrefix(sig, "ed25519:") {
		t.Fatalf("unexpected signature form: %s", sig)
	}
	if !signer.Verify([]byte("payload"), sig) {
		t.Fatal("valid signature rejected")
	}
	if signer.Verify([]byte("other"), sig) {
		t.Fatal("wrong payload accepted")
	}
	if signer.Verify([]byte("payload"), "hmac:deadbeef") {
		t.Fatal("foreign signature form accepted")
	}
}

func TestKeyPairFromSeedRejectsBadSize(t *testing.T) {
	if _, _, err := KeyPairFromSeed([]byte("short")); err != ErrInvalidSeedSize {
		t.Fatalf("expected ErrInvalidSeedSize, got %v", err)
	}
}
