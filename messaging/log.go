package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/saxiib/messenger/storage"
)

// Log is the durable, append-only local message log. It keeps an in-memory
// mirror of the persisted records; on a storage fault the mirror still
// updates so callers stay responsive, at the cost of durability lagging
// memory by one operation until the fault clears.
//
// The log only grows: there is no update or delete. Conversation lookup is
// a linear scan over the full log, which is acceptable up to moderate
// history sizes.
type Log struct {
	store storage.Store

	mu      sync.Mutex
	records []Message
	seen    map[string]struct{}
}

// NewLog opens the log over the given store, loading any persisted records.
// On a storage read failure the returned log is usable but empty, and the
// error (wrapping storage.ErrUnavailable) is returned for the caller to
// observe.
func NewLog(store storage.Store) (*Log, error) {
	l := &Log{
		store: store,
		seen:  make(map[string]struct{}),
	}

	raw, ok, err := store.Get(storage.MessageLogKey)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewLog",
			"error":    err,
		}).Error("Failed to load message log")
		return l, fmt.Errorf("load message log: %w", err)
	}
	if !ok {
		return l, nil
	}

	var records []Message
	if err := json.Unmarshal(raw, &records); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewLog",
			"error":    err,
		}).Error("Persisted message log is corrupt")
		return l, fmt.Errorf("%w: corrupt message log: %v", storage.ErrUnavailable, err)
	}

	l.records = records
	for _, m := range records {
		l.seen[m.ID] = struct{}{}
	}

	logrus.WithFields(logrus.Fields{
		"function": "NewLog",
		"count":    len(records),
	}).Debug("Loaded message log")

	return l, nil
}

// Append adds a record to the log. The in-memory mirror always updates; a
// persistence failure is logged and returned (wrapping
// storage.ErrUnavailable) but does not undo the in-memory append.
func (l *Log) Append(msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, msg)
	l.seen[msg.ID] = struct{}{}

	raw, err := json.Marshal(l.records)
	if err != nil {
		return fmt.Errorf("encode message log: %w", err)
	}

	if err := l.store.Set(storage.MessageLogKey, raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Append",
			"message_id": msg.ID,
			"error":      err,
		}).Error("Failed to persist message log")
		return fmt.Errorf("persist message: %w", err)
	}

	return nil
}

// Messages returns a copy of the log in insertion order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Message, len(l.records))
	copy(out, l.records)
	return out
}

// Contains reports whether a record with the given ID has been appended.
func (l *Log) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.seen[id]
	return ok
}

// Len returns the number of records in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
