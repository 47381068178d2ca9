package av

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateMachine(t *testing.T) {
	cases := []struct {
		name string
		path []SessionState
		ok   bool
	}{
		{"full call", []SessionState{StateRinging, StateConnecting, StateConnected, StateEnded}, true},
		{"canceled while ringing", []SessionState{StateRinging, StateEnded}, true},
		{"failed while ringing", []SessionState{StateRinging, StateFailed}, true},
		{"failed while connecting", []SessionState{StateRinging, StateConnecting, StateFailed}, true},
		{"cannot connect from idle", []SessionState{StateConnected}, false},
		{"cannot skip ringing", []SessionState{StateConnecting}, false},
		{"cannot fail once connected", []SessionState{StateRinging, StateConnecting, StateConnected, StateFailed}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newSession("peer", true)

			var err error
			for _, state := range tc.path {
				if err = s.transition(state); err != nil {
					break
				}
			}

			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			}
		})
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	s := newSession("peer", true)
	require.NoError(t, s.transition(StateRinging))
	require.NoError(t, s.transition(StateEnded))

	assert.True(t, s.State().Terminal())

	// No way out of a terminal state; a new call is a new session.
	for _, to := range []SessionState{StateRinging, StateConnecting, StateConnected, StateFailed} {
		err := s.transition(to)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "ended -> %s must be rejected", to)
	}
}

func TestNewSessionsAreUnique(t *testing.T) {
	a := newSession("peer", true)
	b := newSession("peer", true)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, StateIdle, a.State())
	assert.True(t, a.Outgoing())
}
