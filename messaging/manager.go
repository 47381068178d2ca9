package messaging

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/saxiib/messenger/crypto"
)

// Transport is the minimal peer-delivery interface the manager needs.
// Records handed to it carry ciphertext, nonce, and metadata only.
type Transport interface {
	Send(msg Message) error
}

// Notifier is the notification collaborator surface invoked on receive.
type Notifier interface {
	NotifyNewMessage(senderID, preview string)
}

// Manager orchestrates send and receive over the key pair, cipher, and
// message log. Each outbound message moves composed -> encrypted ->
// persisted -> handed-to-transport; the transitions are sequential and no
// partial record is left in the store on an encryption failure.
//
// All operations are safe no-ops returning ErrIdentityMissing when no key
// pair is loaded.
type Manager struct {
	keys    *crypto.KeyPair
	localID string
	log     *Log

	transport Transport
	notifier  Notifier
	visible   func() bool

	mu   sync.Mutex
	view []Message
}

// NewManager creates a manager over the loaded key pair and message log.
// keys may be nil when identity could not be loaded; the manager then
// degrades every operation to a safe no-op.
//
// The in-memory view is seeded with display copies re-derived from the
// persisted ciphertext records, so history stays readable across
// restarts. Only the view decrypts; the stored records keep their
// ciphertext.
func NewManager(keys *crypto.KeyPair, log *Log) *Manager {
	m := &Manager{
		keys: keys,
		log:  log,
	}
	if keys != nil {
		m.localID = crypto.EncodePublicKey(keys.Public)
	}
	m.view = m.displayCopies(log.Messages())
	return m
}

// displayCopies converts stored records into their display form. A record
// that cannot be opened (no identity, foreign keys, corruption) is kept as
// stored rather than dropped, so the log and the view never disagree on
// length or order.
func (m *Manager) displayCopies(records []Message) []Message {
	out := make([]Message, 0, len(records))
	for _, rec := range records {
		if plaintext, err := m.openRecord(rec); err == nil {
			rec.Content = plaintext
			rec.Nonce = ""
		}
		out = append(out, rec)
	}
	return out
}

// SetTransport installs the peer-delivery collaborator. Outbound records
// are handed to it after they are persisted.
func (m *Manager) SetTransport(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transport = t
}

// SetNotifier installs the notification collaborator.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// SetVisibilityFunc installs the hook reporting whether the consuming
// surface is currently focused. Without a hook the surface is treated as
// not visible, so every inbound message notifies.
func (m *Manager) SetVisibilityFunc(f func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = f
}

// LocalID returns the local identity in its hex string form, or the empty
// string when no identity is loaded.
func (m *Manager) LocalID() string {
	return m.localID
}

// SendText encrypts content to the recipient, appends the ciphertext
// record to the log, and hands it to the transport.
//
// The returned error wraps storage.ErrUnavailable when the record reached
// memory but not durable storage; the message is still returned in that
// case and has been handed to the transport.
func (m *Manager) SendText(content, recipientID string) (*Message, error) {
	return m.send(content, TypeText, recipientID)
}

// SendMedia runs the identical pipeline for a media payload that has
// already been framed as text by the codec collaborator.
func (m *Manager) SendMedia(encodedPayload string, mediaType MessageType, recipientID string) (*Message, error) {
	if !mediaType.IsMedia() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMediaType, mediaType)
	}
	return m.send(encodedPayload, mediaType, recipientID)
}

func (m *Manager) send(content string, messageType MessageType, recipientID string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys == nil {
		return nil, ErrIdentityMissing
	}

	recipientPK, err := crypto.DecodePublicKey(recipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient key: %w", err)
	}

	ciphertext, nonce, err := crypto.Encrypt([]byte(content), recipientPK, m.keys.Private)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "send",
			"recipient": recipientID,
			"error":     err,
		}).Error("Message encryption failed")
		return nil, err
	}

	record := newRecord(
		m.localID,
		recipientID,
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce[:]),
		messageType,
	)

	// Persist first; a storage fault is reported but the record stays in
	// memory and still goes out, so durability may lag by one operation.
	appendErr := m.log.Append(record)

	display := record
	display.Content = content
	display.Nonce = ""
	m.view = append(m.view, display)

	if m.transport != nil {
		if err := m.transport.Send(record); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "send",
				"message_id": record.ID,
				"error":      err,
			}).Warn("Transport hand-off failed")
			if appendErr == nil {
				appendErr = fmt.Errorf("transport hand-off: %w", err)
			}
		}
	}

	return &record, appendErr
}

// Receive processes an inbound record from the transport collaborator.
//
// Duplicate IDs are idempotent no-ops. The record is persisted exactly as
// received (ciphertext at rest); the decrypted content only enters the
// transient in-memory view. A record that fails authentication is dropped
// with the returned error and never surfaces as a message.
func (m *Manager) Receive(incoming Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys == nil {
		return ErrIdentityMissing
	}

	if m.log.Contains(incoming.ID) {
		logrus.WithFields(logrus.Fields{
			"function":   "Receive",
			"message_id": incoming.ID,
		}).Debug("Duplicate inbound record ignored")
		return nil
	}

	plaintext, err := m.openRecord(incoming)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "Receive",
			"message_id": incoming.ID,
			"sender":     incoming.SenderID,
			"error":      err,
		}).Warn("Dropping undecryptable inbound record")
		return err
	}

	// Ciphertext at rest: the stored record is the one received over the
	// transport, never the decrypted copy.
	appendErr := m.log.Append(incoming)

	display := incoming
	display.Content = plaintext
	display.Nonce = ""
	m.view = append(m.view, display)

	if m.notifier != nil && !m.surfaceVisible() {
		m.notifier.NotifyNewMessage(incoming.SenderID, plaintext)
	}

	return appendErr
}

// openRecord decrypts a stored or inbound record. The box shared key is
// symmetric, so an outbound record opens with the receiver's public key
// and an inbound one with the sender's.
func (m *Manager) openRecord(rec Message) (string, error) {
	if m.keys == nil {
		return "", ErrIdentityMissing
	}

	peerID := rec.SenderID
	if rec.SenderID == m.localID {
		peerID = rec.ReceiverID
	}
	peerPK, err := crypto.DecodePublicKey(peerID)
	if err != nil {
		return "", fmt.Errorf("peer key: %w", err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.Content)
	if err != nil {
		return "", fmt.Errorf("%w: content: %v", ErrMalformedRecord, err)
	}

	rawNonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil || len(rawNonce) != len(crypto.Nonce{}) {
		return "", fmt.Errorf("%w: nonce", ErrMalformedRecord)
	}
	var nonce crypto.Nonce
	copy(nonce[:], rawNonce)

	plaintext, err := crypto.Decrypt(ciphertext, nonce, peerPK, m.keys.Private)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (m *Manager) surfaceVisible() bool {
	if m.visible == nil {
		return false
	}
	return m.visible()
}

// Conversation returns the display copies of all messages exchanged with
// the peer, in insertion order. It is a pure filter recomputed on each
// call; nothing is cached or indexed.
func (m *Manager) Conversation(peerID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys == nil {
		return nil
	}

	var out []Message
	for _, msg := range m.view {
		if (msg.SenderID == m.localID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == m.localID) {
			out = append(out, msg)
		}
	}
	return out
}

// Messages returns a copy of the in-memory display view.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.view))
	copy(out, m.view)
	return out
}
