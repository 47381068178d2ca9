package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerStore is the durable Store implementation backed by BadgerDB.
// Writes are synchronous so that a successful Set can be treated as
// "safely persisted".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB-backed store at dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: open badger at %s: %v", ErrUnavailable, dir, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenBadger",
		"dir":      dir,
	}).Debug("Opened durable store")

	return &BadgerStore{db: db}, nil
}

// Get returns the value for key, reporting presence explicitly.
func (s *BadgerStore) Get(key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %q: %v", ErrUnavailable, key, err)
	}

	return value, true, nil
}

// Set durably persists value under key before returning.
func (s *BadgerStore) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("%w: set %q: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrUnavailable, err)
	}
	return nil
}
