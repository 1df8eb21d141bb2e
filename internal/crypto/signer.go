package crypto

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer produces and checks detached signatures over event bytes. The
// ledger never assumes a scheme: the default HMAC signer is a keyed-hash
// stand-in, and Ed25519Signer is a drop-in asymmetric replacement.
type Signer interface {
	KeyID() string
	Sign(data []byte) (string, error)
	Verify(data []byte, sig string) bool
}

// HMACSigner is the default placeholder signer: HMAC-SHA256 over the data,
// hex-encoded with an "hmac:" prefix. Not an authentic signature scheme.
type HMACSigner struct {
	keyID string
	key   []byte
}

func NewHMACSigner(keyID string, key []byte) (*HMACSigner, error) {
	if len(key) == 0 {
		return nil, ErrEmptyMACKey
	}
	return &HMACSigner{keyID: keyID, key: key}, nil
}

func (s *HMACSigner) KeyID() string { return s.keyID }

func (s *HMACSigner) Sign(data []byte) (string, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return "hmac:" + hex.EncodeToString(mac.Sum(nil)), nil
}

func (s *HMACSigner) Verify(data []byte, sig string) bool {
	want, err := s.Sign(data)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(want), []byte(sig))
}

// Ed25519Signer signs the SHA-256 digest of the data with Ed25519.
type Ed25519Signer struct {
	keyID string
	priv  ed25519.PrivateKey
	pub   ed25519.PublicKey
}

func NewEd25519Signer(keyID string, priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{keyID: keyID, priv: priv, pub: priv.Public().(ed25519.PublicKey)}
}

func (s *Ed25519Signer) KeyID() string { return s.keyID }

func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	sig, err := SignEd25519(s.priv, DigestBytes(data))
	if err != nil {
		return "", err
	}
	return "ed25519:" + hex.EncodeToString(sig), nil
}

func (s *Ed25519Signer) Verify(data []byte, sig string) bool {
	const prefix = "ed25519:"
	if len(sig) <= len(prefix) || sig[:len(prefix)] != prefix {
		return false
	}
	raw, err := hex.DecodeString(sig[len(prefix):])
	if err != nil {
		return false
	}
	ok, err := VerifyEd25519(s.pub, DigestBytes(data), raw)
	return err == nil && ok
}
