package crypto

import "errors"

var (
	ErrNonFiniteNumber  = errors.New("non-finite numbers are not allowed")
	ErrNonStringMapKey  = errors.New("map keys must be strings")
	ErrUnsupportedType  = errors.New("unsupported type for canonicalization")
	ErrKeyCollision     = errors.New("normalized map key collision")
	ErrInvalidSeedSize  = errors.New("invalid ed25519 seed size")
	ErrInvalidDigestLen = errors.New("invalid digest length")
	ErrEmptyMACKey      = errors.New("empty mac key")
)
