package messaging

import "errors"

// Sentinel errors for messaging operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrIdentityMissing indicates no local key pair is loaded. Every
	// messaging operation becomes a safe no-op returning this value.
	ErrIdentityMissing = errors.New("no identity key pair loaded")

	// ErrUnknownMediaType indicates a media send with a type tag that is
	// not image, video, or voice.
	ErrUnknownMediaType = errors.New("unknown media type")

	// ErrMalformedRecord indicates an inbound record whose content or
	// nonce is not valid transport encoding.
	ErrMalformedRecord = errors.New("malformed message record")
)
