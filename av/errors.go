package av

import "errors"

// Sentinel errors for av package operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrIdentityMissing indicates no local key pair is loaded. Every
	// call operation becomes a safe no-op.
	ErrIdentityMissing = errors.New("no identity key pair loaded")

	// ErrMediaAccess indicates local media could not be acquired.
	ErrMediaAccess = errors.New("media access denied")

	// ErrCallAlreadyActive indicates a non-terminal session already
	// exists with this peer.
	ErrCallAlreadyActive = errors.New("call already active with this peer")

	// ErrNoActiveCall indicates no session exists with this peer.
	ErrNoActiveCall = errors.New("no active call with this peer")

	// ErrNotRinging indicates a cancel, accept, or reject on a session
	// that is past the ringing state.
	ErrNotRinging = errors.New("call is not ringing")

	// ErrInvalidTransition indicates an invalid state transition.
	ErrInvalidTransition = errors.New("invalid call state transition")

	// ErrSignalingAuth indicates a signaling payload that failed
	// authentication against the claimed caller identity.
	ErrSignalingAuth = errors.New("signaling authentication failed")

	// ErrMalformedSignal indicates a signaling payload that authenticated
	// but could not be parsed.
	ErrMalformedSignal = errors.New("malformed signaling payload")
)
