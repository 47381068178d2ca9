package av

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saxiib/messenger/crypto"
)

// Signaling defines the call handshake payloads exchanged between peers
// through the transport collaborator. Payloads are sealed with the identity
// key pair before transmission, so a payload that opens under the claimed
// caller's public key is authenticated by construction.

// signalKind discriminates handshake payloads inside the sealed envelope.
type signalKind byte

const (
	signalOffer   signalKind = 0x01
	signalAnswer  signalKind = 0x02
	signalControl signalKind = 0x03
)

// ControlType is a call control action carried by a control payload.
type ControlType byte

const (
	// ControlCancel retracts a ringing outgoing call.
	ControlCancel ControlType = 0x01
	// ControlHangup ends an accepted call.
	ControlHangup ControlType = 0x02
)

// OfferPacket initiates a call.
//
// Wire format (inside the sealed envelope):
//
//	[KIND(1)][CALL_ID(16)][FLAGS(1)][TIMESTAMP(8)]
//
// FLAGS bit 0 is audio, bit 1 is video. Total size: 26 bytes.
type OfferPacket struct {
	CallID       string
	AudioEnabled bool
	VideoEnabled bool
	Timestamp    time.Time
}

// AnswerPacket responds to an offer.
//
// Wire format:
//
//	[KIND(1)][CALL_ID(16)][ACCEPTED(1)][TIMESTAMP(8)]
type AnswerPacket struct {
	CallID    string
	Accepted  bool
	Timestamp time.Time
}

// ControlPacket carries cancel/hangup for an in-flight call.
//
// Wire format:
//
//	[KIND(1)][CALL_ID(16)][CONTROL(1)][TIMESTAMP(8)]
type ControlPacket struct {
	CallID    string
	Control   ControlType
	Timestamp time.Time
}

const signalPacketSize = 1 + 16 + 1 + 8

func marshalSignal(kind signalKind, callID string, flag byte, ts time.Time) ([]byte, error) {
	id, err := uuid.Parse(callID)
	if err != nil {
		return nil, fmt.Errorf("%w: call id: %v", ErrMalformedSignal, err)
	}

	data := make([]byte, signalPacketSize)
	data[0] = byte(kind)
	copy(data[1:17], id[:])
	data[17] = flag
	binary.BigEndian.PutUint64(data[18:26], uint64(ts.UnixNano()))
	return data, nil
}

func unmarshalSignal(data []byte) (kind signalKind, callID string, flag byte, ts time.Time, err error) {
	if len(data) < signalPacketSize {
		return 0, "", 0, time.Time{}, fmt.Errorf("%w: %d bytes", ErrMalformedSignal, len(data))
	}

	var id uuid.UUID
	copy(id[:], data[1:17])

	kind = signalKind(data[0])
	callID = id.String()
	flag = data[17]
	ts = time.Unix(0, int64(binary.BigEndian.Uint64(data[18:26])))
	return kind, callID, flag, ts, nil
}

// MarshalOffer serializes an offer packet.
func MarshalOffer(offer *OfferPacket) ([]byte, error) {
	var flags byte
	if offer.AudioEnabled {
		flags |= 0x01
	}
	if offer.VideoEnabled {
		flags |= 0x02
	}
	return marshalSignal(signalOffer, offer.CallID, flags, offer.Timestamp)
}

// MarshalAnswer serializes an answer packet.
func MarshalAnswer(answer *AnswerPacket) ([]byte, error) {
	var accepted byte
	if answer.Accepted {
		accepted = 1
	}
	return marshalSignal(signalAnswer, answer.CallID, accepted, answer.Timestamp)
}

// MarshalControl serializes a control packet.
func MarshalControl(control *ControlPacket) ([]byte, error) {
	return marshalSignal(signalControl, control.CallID, byte(control.Control), control.Timestamp)
}

// SealSignal encrypts a serialized signaling payload to the peer using the
// identity keys. The envelope is the nonce followed by the ciphertext.
func SealSignal(payload []byte, peerPK, localSK [32]byte) ([]byte, error) {
	ciphertext, nonce, err := crypto.Encrypt(payload, peerPK, localSK)
	if err != nil {
		return nil, fmt.Errorf("seal signal: %w", err)
	}

	envelope := make([]byte, 0, len(nonce)+len(ciphertext))
	envelope = append(envelope, nonce[:]...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// OpenSignal authenticates and decrypts a sealed envelope from the claimed
// caller. Failure returns ErrSignalingAuth: a forged caller identity never
// produces a payload.
func OpenSignal(envelope []byte, callerPK, localSK [32]byte) ([]byte, error) {
	if len(envelope) <= len(crypto.Nonce{}) {
		return nil, fmt.Errorf("%w: envelope too short", ErrSignalingAuth)
	}

	var nonce crypto.Nonce
	copy(nonce[:], envelope[:len(nonce)])

	payload, err := crypto.Decrypt(envelope[len(nonce):], nonce, callerPK, localSK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignalingAuth, err)
	}
	return payload, nil
}
