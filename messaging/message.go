package messaging

import (
	"time"

	"github.com/google/uuid"
)

// MessageType tags the payload kind carried by a message.
type MessageType string

const (
	// TypeText is a plain text message.
	TypeText MessageType = "text"
	// TypeImage is a base64-framed image payload.
	TypeImage MessageType = "image"
	// TypeVideo is a base64-framed video payload.
	TypeVideo MessageType = "video"
	// TypeVoice is a base64-framed voice note payload.
	TypeVoice MessageType = "voice"
)

// MessageStatus is the delivery state of a message. Only StatusSent is
// produced locally; delivered/read transitions belong to a future
// transport acknowledgement.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Message is the unit exchanged with the transport collaborator and stored
// in the local log. Sender and receiver are hex-encoded public keys.
//
// Nonce is present iff Content is ciphertext. Records are never mutated
// after creation; a decrypted copy is a transient display value and is
// never written back.
type Message struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"senderId"`
	ReceiverID string        `json:"receiverId"`
	Content    string        `json:"content"`
	Nonce      string        `json:"nonce,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     MessageStatus `json:"status"`
	Type       MessageType   `json:"type"`
}

// newRecord creates an outbound ciphertext record. IDs are random 128-bit
// values so concurrent sends cannot collide.
func newRecord(senderID, receiverID, ciphertext, nonce string, messageType MessageType) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    ciphertext,
		Nonce:      nonce,
		Timestamp:  time.Now(),
		Status:     StatusSent,
		Type:       messageType,
	}
}

// IsMedia reports whether t is one of the media payload types.
func (t MessageType) IsMedia() bool {
	return t == TypeImage || t == TypeVideo || t == TypeVoice
}
