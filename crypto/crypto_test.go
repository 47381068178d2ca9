package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	if keyPair == nil {
		t.Fatal("GenerateKeyPair() returned nil key pair")
	}

	if isZeroKey(keyPair.Public) {
		t.Error("GenerateKeyPair() returned zero public key")
	}
	if isZeroKey(keyPair.Private) {
		t.Error("GenerateKeyPair() returned zero private key")
	}

	// Multiple generations must produce different keys.
	keyPair2, _ := GenerateKeyPair()
	if bytes.Equal(keyPair.Public[:], keyPair2.Public[:]) {
		t.Error("Multiple GenerateKeyPair() calls produced identical public keys")
	}
}

func TestFromSecretKey(t *testing.T) {
	original, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error: %v", err)
	}

	restored, err := FromSecretKey(original.Private)
	if err != nil {
		t.Fatalf("FromSecretKey() error: %v", err)
	}

	// The public key is derived from the secret, so restoring from the
	// secret alone must reproduce the full identity.
	if !bytes.Equal(restored.Public[:], original.Public[:]) {
		t.Error("FromSecretKey() derived a different public key")
	}

	if _, err := FromSecretKey([32]byte{}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("FromSecretKey(zero) error = %v, want ErrInvalidKey", err)
	}
}

func TestPublicKeyEncoding(t *testing.T) {
	keyPair, _ := GenerateKeyPair()

	encoded := EncodePublicKey(keyPair.Public)
	if len(encoded) != 64 {
		t.Errorf("EncodePublicKey() length = %d, want 64", len(encoded))
	}

	decoded, err := DecodePublicKey(encoded)
	if err != nil {
		t.Fatalf("DecodePublicKey() error: %v", err)
	}
	if decoded != keyPair.Public {
		t.Error("DecodePublicKey() did not round-trip")
	}

	cases := []struct {
		name  string
		input string
	}{
		{"not hex", "zz"},
		{"wrong length", "abcdef"},
		{"all zeros", EncodePublicKey([32]byte{})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodePublicKey(tc.input); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("DecodePublicKey(%q) error = %v, want ErrInvalidKey", tc.input, err)
			}
		})
	}
}

func TestGenerateNonce(t *testing.T) {
	nonce, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce() error: %v", err)
	}

	zeroNonce := Nonce{}
	if nonce == zeroNonce {
		t.Error("GenerateNonce() returned zero nonce")
	}

	nonce2, _ := GenerateNonce()
	if nonce == nonce2 {
		t.Error("Consecutive nonces are identical")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	plaintext := []byte("hello over an untrusted channel")

	ciphertext, nonce, err := Encrypt(plaintext, bob.Public, alice.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Equal(ciphertext, plaintext) {
		t.Error("Encrypt() returned plaintext unchanged")
	}

	decrypted, err := Decrypt(ciphertext, nonce, alice.Public, bob.Private)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptNonceUniqueness(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	plaintext := []byte("same plaintext twice")

	ct1, n1, err := Encrypt(plaintext, bob.Public, alice.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	ct2, n2, err := Encrypt(plaintext, bob.Public, alice.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if n1 == n2 {
		t.Error("Encrypting twice produced the same nonce")
	}
	if bytes.Equal(ct1, ct2) {
		t.Error("Encrypting twice produced the same ciphertext")
	}
}

func TestDecryptWrongKeyRejected(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()
	mallory, _ := GenerateKeyPair()

	ciphertext, nonce, err := Encrypt([]byte("secret"), bob.Public, alice.Private)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// Wrong sender public key: authentication must fail.
	if _, err := Decrypt(ciphertext, nonce, mallory.Public, bob.Private); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong sender key error = %v, want ErrDecryptionFailed", err)
	}

	// Wrong recipient secret key.
	if _, err := Decrypt(ciphertext, nonce, alice.Public, mallory.Private); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong recipient key error = %v, want ErrDecryptionFailed", err)
	}

	// Corrupted ciphertext.
	corrupted := append([]byte(nil), ciphertext...)
	corrupted[0] ^= 0xFF
	if _, err := Decrypt(corrupted, nonce, alice.Public, bob.Private); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() of corrupted ciphertext error = %v, want ErrDecryptionFailed", err)
	}

	// Mismatched nonce.
	wrongNonce, _ := GenerateNonce()
	if _, err := Decrypt(ciphertext, wrongNonce, alice.Public, bob.Private); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decrypt() with wrong nonce error = %v, want ErrDecryptionFailed", err)
	}
}

func TestEncryptRejectsInvalidInput(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	if _, _, err := Encrypt(nil, bob.Public, alice.Private); !errors.Is(err, ErrEncryptionFailed) {
		t.Errorf("Encrypt(nil) error = %v, want ErrEncryptionFailed", err)
	}

	if _, _, err := Encrypt([]byte("x"), [32]byte{}, alice.Private); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Encrypt() with zero recipient key error = %v, want ErrInvalidKey", err)
	}
}
