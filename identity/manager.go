// Package identity manages the long-lived identity key pair. The pair is
// generated once per installation, persisted before first use, and never
// regenerated while a persisted copy exists: peers encrypt to the stored
// public key, so silently replacing it would orphan the user's history.
package identity

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/saxiib/messenger/crypto"
	"github.com/saxiib/messenger/storage"
)

// savedKeyPair is the persisted form. Only the secret key is stored; the
// public key is derived from it on load, so the two can never drift apart.
type savedKeyPair struct {
	SecretKey string `json:"secretKey"`
}

// Manager owns the identity key pair and its persistence.
type Manager struct {
	store storage.Store

	mu   sync.Mutex
	keys *crypto.KeyPair
}

// NewManager creates a manager backed by the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{store: store}
}

// LoadOrCreate returns the installation's key pair, generating and
// persisting one on first run. The order on first run is generate, persist,
// return: a crash between generation and persistence never leaves a pair in
// use that storage does not hold.
//
// A storage failure wraps storage.ErrUnavailable and the caller must treat
// identity as absent for the session rather than regenerating.
func (m *Manager) LoadOrCreate() (*crypto.KeyPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys != nil {
		return m.keys, nil
	}

	raw, ok, err := m.store.Get(storage.KeyPairKey)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "LoadOrCreate",
			"error":    err,
		}).Error("Failed to read identity key pair")
		return nil, fmt.Errorf("load identity: %w", err)
	}

	if ok {
		keys, err := decodeKeyPair(raw)
		if err != nil {
			// Corrupt stored identity fails closed; regenerating here
			// would silently orphan all history held by peers.
			logrus.WithFields(logrus.Fields{
				"function": "LoadOrCreate",
				"error":    err,
			}).Error("Stored identity key pair is corrupt")
			return nil, fmt.Errorf("%w: corrupt identity record: %v", storage.ErrUnavailable, err)
		}
		m.keys = keys
		return keys, nil
	}

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}

	if err := m.store.Set(storage.KeyPairKey, encodeKeyPair(keys)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "LoadOrCreate",
			"error":    err,
		}).Error("Failed to persist new identity key pair")
		return nil, fmt.Errorf("persist identity: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "LoadOrCreate",
		"public_key": crypto.EncodePublicKey(keys.Public),
	}).Info("Generated new identity key pair")

	m.keys = keys
	return keys, nil
}

// PublicKeyHex returns the loaded identity in its peer-facing string form,
// or the empty string if no pair is loaded.
func (m *Manager) PublicKeyHex() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys == nil {
		return ""
	}
	return crypto.EncodePublicKey(m.keys.Public)
}

func encodeKeyPair(keys *crypto.KeyPair) []byte {
	raw, _ := json.Marshal(savedKeyPair{
		SecretKey: hex.EncodeToString(keys.Private[:]),
	})
	return raw
}

func decodeKeyPair(raw []byte) (*crypto.KeyPair, error) {
	var saved savedKeyPair
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, err
	}

	secret, err := hex.DecodeString(saved.SecretKey)
	if err != nil {
		return nil, err
	}
	if len(secret) != 32 {
		return nil, fmt.Errorf("secret key is %d bytes, want 32", len(secret))
	}

	var sk [32]byte
	copy(sk[:], secret)
	return crypto.FromSecretKey(sk)
}
