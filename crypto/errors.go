package crypto

import "errors"

// Sentinel errors for crypto package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidKey indicates a malformed, zero, or wrongly-sized key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrEncryptionFailed indicates a message could not be encrypted.
	// Under valid keys this points at invalid input, never at the scheme.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates authentication or decryption failure.
	// This is expected for tampered ciphertext, a wrong sender key, or a
	// mismatched nonce, and is recoverable by dropping the record.
	ErrDecryptionFailed = errors.New("decryption failed")
)
