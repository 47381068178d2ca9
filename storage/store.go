// Package storage provides the persistent key-value collaborator used for
// the identity key pair and the message log. The core only needs two logical
// keys, so the interface is a minimal get/set boundary.
package storage

import "errors"

// Well-known logical keys used by the core.
const (
	// KeyPairKey stores the serialized identity key pair.
	KeyPairKey = "saxiib.keypair"
	// MessageLogKey stores the serialized append-only message log.
	MessageLogKey = "saxiib.messages"
)

// ErrUnavailable indicates a durable read or write failure. Callers log it
// and degrade to memory-only operation, or fail closed for key-pair loads.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the persistent storage boundary. A successful Set means the value
// is safely persisted; Get reports presence explicitly so an absent key is
// not an error.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Close() error
}
