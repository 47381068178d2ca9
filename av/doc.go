// Package av implements the call-initiation handshake.
//
// Calls reuse the messaging identity key pair: signaling payloads are
// sealed with authenticated public-key encryption, so the callee verifies
// the caller's identity before ringing. The actual media plane (capture,
// codecs, streams) belongs to external collaborators; this package only
// brokers the handshake and owns the session state machine:
//
//	idle -> ringing -> connecting -> connected -> ended
//
// with failed reachable from ringing and connecting. Terminal sessions are
// never reused; a new call is a new session.
package av
