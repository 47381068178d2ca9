// Package transport provides the peer-delivery collaborator boundary.
//
// The core does not implement a network transport; it hands finished
// ciphertext records and opaque call-signaling payloads to whatever
// implementation the embedder wires in. Loopback links two in-process
// endpoints and is used by tests and local demos.
package transport

import (
	"errors"
	"sync"

	"github.com/saxiib/messenger/messaging"
)

// ErrNoHandler indicates delivery to an endpoint with no registered
// handler for that payload kind.
var ErrNoHandler = errors.New("no handler registered on receiving endpoint")

// Endpoint is one side of an in-process loopback link. It satisfies the
// messaging.Transport interface and the av signaling interface.
type Endpoint struct {
	mu      sync.Mutex
	peer    *Endpoint
	localID string

	messageHandler func(messaging.Message)
	signalHandler  func(callerID string, payload []byte)
}

// NewLoopback creates two linked endpoints. Anything sent on one side is
// delivered synchronously to the other side's handlers.
func NewLoopback() (*Endpoint, *Endpoint) {
	a := &Endpoint{}
	b := &Endpoint{}
	a.peer = b
	b.peer = a
	return a, b
}

// SetLocalID sets the identity reported as the caller on signaling
// payloads originating from this endpoint.
func (e *Endpoint) SetLocalID(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localID = id
}

// Send delivers a message record to the linked endpoint.
func (e *Endpoint) Send(msg messaging.Message) error {
	e.peer.mu.Lock()
	handler := e.peer.messageHandler
	e.peer.mu.Unlock()

	if handler == nil {
		return ErrNoHandler
	}
	handler(msg)
	return nil
}

// OnMessage registers the inbound record handler.
func (e *Endpoint) OnMessage(handler func(messaging.Message)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messageHandler = handler
}

// SendSignal delivers an opaque call-signaling payload to the linked
// endpoint. peerID is accepted for interface compatibility; a loopback
// link has exactly one peer.
func (e *Endpoint) SendSignal(peerID string, payload []byte) error {
	e.mu.Lock()
	localID := e.localID
	e.mu.Unlock()

	e.peer.mu.Lock()
	handler := e.peer.signalHandler
	e.peer.mu.Unlock()

	if handler == nil {
		return ErrNoHandler
	}
	handler(localID, payload)
	return nil
}

// OnSignal registers the inbound signaling handler.
func (e *Endpoint) OnSignal(handler func(callerID string, payload []byte)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.signalHandler = handler
}
