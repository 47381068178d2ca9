package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Nonce is a 24-byte single-use value required by the crypto_box scheme.
type Nonce [24]byte

// MaxMessageSize caps plaintext size (16MB) to bound memory usage for
// encoded media payloads.
const MaxMessageSize = 16 * 1024 * 1024

// GenerateNonce creates a cryptographically secure random nonce.
// A fresh value is drawn from crypto/rand on every call; nonces are never
// derived from counters, so process restarts cannot repeat one.
func GenerateNonce() (Nonce, error) {
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return Nonce{}, err
	}
	return nonce, nil
}

// Encrypt encrypts a message to a recipient using authenticated public-key
// encryption. The recipient verifies the sender's identity implicitly:
// tampering or a wrong-key decryption fails rather than yielding garbage.
//
// A fresh random nonce is generated per call and returned alongside the
// ciphertext; both are required for decryption.
func Encrypt(plaintext []byte, recipientPK, senderSK [32]byte) ([]byte, Nonce, error) {
	if len(plaintext) == 0 {
		return nil, Nonce{}, fmt.Errorf("%w: empty message", ErrEncryptionFailed)
	}
	if len(plaintext) > MaxMessageSize {
		return nil, Nonce{}, fmt.Errorf("%w: message too large (%d bytes)", ErrEncryptionFailed, len(plaintext))
	}
	if isZeroKey(recipientPK) || isZeroKey(senderSK) {
		return nil, Nonce{}, fmt.Errorf("%w: zero key", ErrInvalidKey)
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, Nonce{}, fmt.Errorf("%w: nonce generation: %v", ErrEncryptionFailed, err)
	}

	ciphertext := box.Seal(nil, plaintext, (*[24]byte)(&nonce), (*[32]byte)(&recipientPK), (*[32]byte)(&senderSK))
	return ciphertext, nonce, nil
}
