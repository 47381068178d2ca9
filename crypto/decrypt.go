package crypto

import (
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// Decrypt decrypts and authenticates a message from a sender.
// Failure returns ErrDecryptionFailed, never a plausible-looking plaintext.
func Decrypt(ciphertext []byte, nonce Nonce, senderPK, recipientSK [32]byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrDecryptionFailed)
	}
	if isZeroKey(senderPK) || isZeroKey(recipientSK) {
		return nil, fmt.Errorf("%w: zero key", ErrInvalidKey)
	}

	plaintext, ok := box.Open(nil, ciphertext, (*[24]byte)(&nonce), (*[32]byte)(&senderPK), (*[32]byte)(&recipientSK))
	if !ok {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
