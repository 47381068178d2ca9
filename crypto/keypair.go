// Package crypto implements the cryptographic primitives for the messenger.
//
// This package handles identity key generation and authenticated public-key
// encryption using the NaCl cryptography library through Go's x/crypto
// packages. A single long-lived key pair both addresses a peer and
// authenticates/encrypts messages to them.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Public key:", crypto.EncodePublicKey(keys.Public))
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair represents a NaCl crypto_box key pair forming a peer identity.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random NaCl key pair.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &KeyPair{
		Public:  *publicKey,
		Private: *privateKey,
	}, nil
}

// FromSecretKey reconstructs a key pair from an existing private key.
// The public key is derived deterministically from the private key, so a
// stored secret is sufficient to recover the full identity.
func FromSecretKey(secretKey [32]byte) (*KeyPair, error) {
	if isZeroKey(secretKey) {
		return nil, fmt.Errorf("%w: all-zero secret key", ErrInvalidKey)
	}

	publicKey, err := curve25519.X25519(secretKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	keyPair := &KeyPair{Private: secretKey}
	copy(keyPair.Public[:], publicKey)

	return keyPair, nil
}

// EncodePublicKey returns the canonical hex string form of a public key.
// This string is the peer identity used in message records and call
// signaling.
func EncodePublicKey(publicKey [32]byte) string {
	return hex.EncodeToString(publicKey[:])
}

// DecodePublicKey parses a hex-encoded public key string.
func DecodePublicKey(s string) ([32]byte, error) {
	var key [32]byte

	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("%w: got %d bytes, want 32", ErrInvalidKey, len(raw))
	}

	copy(key[:], raw)
	if isZeroKey(key) {
		return key, fmt.Errorf("%w: all-zero public key", ErrInvalidKey)
	}

	return key, nil
}

// isZeroKey checks if a key consists of all zeros.
func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
