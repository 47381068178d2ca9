package av

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState represents the current state of a call session.
type SessionState uint8

const (
	// StateIdle is a freshly created, not yet signaled session.
	StateIdle SessionState = iota
	// StateRinging means the offer is out (outgoing) or received (incoming).
	StateRinging
	// StateConnecting means the call was accepted and media is binding.
	StateConnecting
	// StateConnected means both streams are live.
	StateConnected
	// StateEnded means the call finished. Terminal.
	StateEnded
	// StateFailed means media was denied or the peer was unreachable. Terminal.
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRinging:
		return "ringing"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Terminal reports whether the state admits no further transitions.
func (s SessionState) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// validTransitions is the session state machine. failed is reachable only
// from ringing and connecting; terminal states have no successors.
var validTransitions = map[SessionState][]SessionState{
	StateIdle:       {StateRinging},
	StateRinging:    {StateConnecting, StateEnded, StateFailed},
	StateConnecting: {StateConnected, StateEnded, StateFailed},
	StateConnected:  {StateEnded},
}

// Stream is an opaque handle on a media stream supplied by the media
// collaborator or delivered by the transport.
type Stream interface {
	ID() string
	Close() error
}

// Media is the external capability that acquires the local media stream.
type Media interface {
	AcquireLocalMedia() (Stream, error)
}

// Session represents a single call with one peer. Sessions are created by
// the Manager and never reused: ended and failed are terminal, and a new
// call gets a new session with a new ID.
type Session struct {
	id       string
	peerID   string
	outgoing bool

	mu           sync.RWMutex
	state        SessionState
	localStream  Stream
	remoteStream Stream
	startTime    time.Time
}

func newSession(peerID string, outgoing bool) *Session {
	return &Session{
		id:        uuid.NewString(),
		peerID:    peerID,
		outgoing:  outgoing,
		state:     StateIdle,
		startTime: time.Now(),
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// PeerID returns the peer identity (hex public key) for this call.
func (s *Session) PeerID() string { return s.peerID }

// Outgoing reports whether the local side initiated the call.
func (s *Session) Outgoing() bool { return s.outgoing }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LocalStream returns the acquired local media stream, if any.
func (s *Session) LocalStream() Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localStream
}

// RemoteStream returns the bound remote media stream, if any.
func (s *Session) RemoteStream() Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteStream
}

// transition moves the session to the target state, enforcing the state
// machine. Terminal states reject every transition.
func (s *Session) transition(to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}

func (s *Session) setLocalStream(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localStream = stream
}

func (s *Session) setRemoteStream(stream Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteStream = stream
}

// closeStreams releases any held media streams. Close errors are ignored;
// the session is already terminal.
func (s *Session) closeStreams() {
	s.mu.Lock()
	local, remote := s.localStream, s.remoteStream
	s.localStream, s.remoteStream = nil, nil
	s.mu.Unlock()

	if local != nil {
		_ = local.Close()
	}
	if remote != nil {
		_ = remote.Close()
	}
}
