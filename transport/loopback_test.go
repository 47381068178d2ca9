package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxiib/messenger/messaging"
)

func TestLoopbackDeliversMessages(t *testing.T) {
	a, b := NewLoopback()

	var received []messaging.Message
	b.OnMessage(func(msg messaging.Message) {
		received = append(received, msg)
	})

	require.NoError(t, a.Send(messaging.Message{ID: "m1"}))
	require.Len(t, received, 1)
	assert.Equal(t, "m1", received[0].ID)
}

func TestLoopbackDeliversSignals(t *testing.T) {
	a, b := NewLoopback()
	a.SetLocalID("alice")

	var caller string
	var payload []byte
	b.OnSignal(func(callerID string, p []byte) {
		caller = callerID
		payload = p
	})

	require.NoError(t, a.SendSignal("bob", []byte{0x01}))
	assert.Equal(t, "alice", caller)
	assert.Equal(t, []byte{0x01}, payload)
}

func TestLoopbackNoHandler(t *testing.T) {
	a, _ := NewLoopback()
	assert.ErrorIs(t, a.Send(messaging.Message{ID: "m1"}), ErrNoHandler)
	assert.ErrorIs(t, a.SendSignal("bob", nil), ErrNoHandler)
}
