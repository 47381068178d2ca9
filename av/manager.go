package av

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saxiib/messenger/crypto"
)

// SignalTransport is the minimal interface the manager needs from the
// transport collaborator for call signaling. Payloads are opaque sealed
// envelopes keyed by peer identity.
type SignalTransport interface {
	SendSignal(peerID string, payload []byte) error
	OnSignal(handler func(callerID string, payload []byte))
}

// Notifier is the notification collaborator surface for incoming calls.
type Notifier interface {
	NotifyIncomingCall(callerID string)
}

// Manager owns the call sessions and drives the handshake. At most one
// non-terminal session exists per peer; terminal sessions are dropped and
// a new call gets a fresh session.
type Manager struct {
	keys    *crypto.KeyPair
	media   Media
	signals SignalTransport

	mu       sync.RWMutex
	sessions map[string]*Session

	notifier         Notifier
	incomingCallback func(*Session)
	stateCallback    func(peerID string, state SessionState)
}

// NewManager creates a call manager over the identity keys and the media
// and signaling collaborators. keys may be nil when identity could not be
// loaded; every call operation then degrades to a safe no-op.
func NewManager(keys *crypto.KeyPair, media Media, signals SignalTransport) (*Manager, error) {
	if media == nil {
		return nil, fmt.Errorf("media collaborator cannot be nil")
	}
	if signals == nil {
		return nil, fmt.Errorf("signal transport cannot be nil")
	}

	m := &Manager{
		keys:     keys,
		media:    media,
		signals:  signals,
		sessions: make(map[string]*Session),
	}
	signals.OnSignal(m.handleSignal)

	return m, nil
}

// SetNotifier installs the notification collaborator for incoming calls.
func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// OnIncomingCall registers the callback invoked when a verified offer
// arrives. The session is in the ringing state; the embedder answers with
// Accept or Reject.
func (m *Manager) OnIncomingCall(cb func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incomingCallback = cb
}

// OnStateChange registers the callback invoked on session state changes.
func (m *Manager) OnStateChange(cb func(peerID string, state SessionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCallback = cb
}

// ActiveSession returns the non-terminal session with the peer, if any.
func (m *Manager) ActiveSession(peerID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[peerID]
	return s, ok
}

// Initiate starts a call to the peer: local media is acquired, a sealed
// offer goes out, and the returned session rings until answered.
//
// Media denial returns ErrMediaAccess with no session opened. A signaling
// failure returns the session in the failed state along with the error;
// nothing is left half-open.
func (m *Manager) Initiate(peerID string) (*Session, error) {
	if m.keys == nil {
		return nil, ErrIdentityMissing
	}

	peerPK, err := crypto.DecodePublicKey(peerID)
	if err != nil {
		return nil, fmt.Errorf("peer key: %w", err)
	}

	stream, err := m.media.AcquireLocalMedia()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Initiate",
			"peer":     peerID,
			"error":    err,
		}).Warn("Local media acquisition failed")
		return nil, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	// Check and register under one lock, and register before the offer
	// goes out: the reply can arrive on the caller's goroutine before
	// sendSealed returns, and the handler must find the session.
	m.mu.Lock()
	if _, exists := m.sessions[peerID]; exists {
		m.mu.Unlock()
		_ = stream.Close()
		return nil, ErrCallAlreadyActive
	}
	session := newSession(peerID, true)
	session.setLocalStream(stream)
	m.sessions[peerID] = session
	m.mu.Unlock()

	m.setState(session, StateRinging)

	offer, err := MarshalOffer(&OfferPacket{
		CallID:       session.ID(),
		AudioEnabled: true,
		VideoEnabled: true,
		Timestamp:    time.Now(),
	})
	if err == nil {
		err = m.sendSealed(peerID, peerPK, offer)
	}
	if err != nil {
		m.failSession(session)
		return session, fmt.Errorf("send offer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Initiate",
		"peer":     peerID,
		"call_id":  session.ID(),
	}).Info("Call initiated")

	return session, nil
}

// Accept answers a ringing incoming call: local media is acquired and a
// sealed acceptance goes back to the caller. The session then connects
// once the transport reports the remote stream.
//
// Media denial transitions the session to failed and returns
// ErrMediaAccess; the caller side sees the call rejected.
func (m *Manager) Accept(peerID string) (*Session, error) {
	if m.keys == nil {
		return nil, ErrIdentityMissing
	}

	session, ok := m.ActiveSession(peerID)
	if !ok {
		return nil, ErrNoActiveCall
	}
	if session.Outgoing() || session.State() != StateRinging {
		return nil, ErrNotRinging
	}

	peerPK, err := crypto.DecodePublicKey(peerID)
	if err != nil {
		return nil, fmt.Errorf("peer key: %w", err)
	}

	stream, err := m.media.AcquireLocalMedia()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Accept",
			"peer":     peerID,
			"error":    err,
		}).Warn("Local media acquisition failed")
		if declineErr := m.answer(peerID, peerPK, session.ID(), false); declineErr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Accept",
				"peer":     peerID,
				"call_id":  session.ID(),
				"error":    declineErr,
			}).Warn("Decline delivery failed")
		}
		m.failSession(session)
		return session, fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	session.setLocalStream(stream)

	if err := m.answer(peerID, peerPK, session.ID(), true); err != nil {
		m.failSession(session)
		return session, fmt.Errorf("send answer: %w", err)
	}

	m.setState(session, StateConnecting)
	return session, nil
}

// Reject declines a ringing incoming call.
func (m *Manager) Reject(peerID string) error {
	if m.keys == nil {
		return ErrIdentityMissing
	}

	session, ok := m.ActiveSession(peerID)
	if !ok {
		return ErrNoActiveCall
	}
	if session.Outgoing() || session.State() != StateRinging {
		return ErrNotRinging
	}

	peerPK, err := crypto.DecodePublicKey(peerID)
	if err != nil {
		return fmt.Errorf("peer key: %w", err)
	}

	if declineErr := m.answer(peerID, peerPK, session.ID(), false); declineErr != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Reject",
			"peer":     peerID,
			"call_id":  session.ID(),
			"error":    declineErr,
		}).Warn("Decline delivery failed")
	}
	m.endSession(session)
	return nil
}

// Cancel retracts an outgoing call. Allowed only while ringing; once the
// peer accepts, the call must be ended, not canceled.
func (m *Manager) Cancel(peerID string) error {
	if m.keys == nil {
		return ErrIdentityMissing
	}

	session, ok := m.ActiveSession(peerID)
	if !ok {
		return ErrNoActiveCall
	}
	if !session.Outgoing() || session.State() != StateRinging {
		return ErrNotRinging
	}

	m.sendControl(peerID, session.ID(), ControlCancel)
	m.endSession(session)
	return nil
}

// End hangs up an accepted call.
func (m *Manager) End(peerID string) error {
	if m.keys == nil {
		return ErrIdentityMissing
	}

	session, ok := m.ActiveSession(peerID)
	if !ok {
		return ErrNoActiveCall
	}

	state := session.State()
	if state != StateConnecting && state != StateConnected {
		return fmt.Errorf("%w: cannot hang up from %s", ErrInvalidTransition, state)
	}

	m.sendControl(peerID, session.ID(), ControlHangup)
	m.endSession(session)
	return nil
}

// HandleRemoteStream binds the remote media stream once the transport
// collaborator reports the connection, completing the handshake.
func (m *Manager) HandleRemoteStream(peerID string, stream Stream) error {
	session, ok := m.ActiveSession(peerID)
	if !ok {
		return ErrNoActiveCall
	}

	if err := session.transition(StateConnected); err != nil {
		return err
	}
	session.setRemoteStream(stream)
	m.notifyState(peerID, StateConnected)

	logrus.WithFields(logrus.Fields{
		"function": "HandleRemoteStream",
		"peer":     peerID,
		"call_id":  session.ID(),
	}).Info("Call connected")

	return nil
}

// handleSignal processes a sealed signaling envelope from the transport.
// Payloads that fail authentication against the claimed caller identity
// are dropped and logged; they never ring.
func (m *Manager) handleSignal(callerID string, envelope []byte) {
	if m.keys == nil {
		return
	}

	callerPK, err := crypto.DecodePublicKey(callerID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleSignal",
			"caller":   callerID,
			"error":    err,
		}).Warn("Dropping signal with invalid caller identity")
		return
	}

	payload, err := OpenSignal(envelope, callerPK, m.keys.Private)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleSignal",
			"caller":   callerID,
			"error":    err,
		}).Warn("Dropping unauthenticated signal")
		return
	}

	kind, callID, flag, _, err := unmarshalSignal(payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleSignal",
			"caller":   callerID,
			"error":    err,
		}).Warn("Dropping malformed signal")
		return
	}

	switch kind {
	case signalOffer:
		m.handleOffer(callerID, callerPK, callID)
	case signalAnswer:
		m.handleAnswer(callerID, callID, flag == 1)
	case signalControl:
		m.handleControl(callerID, callID, ControlType(flag))
	default:
		logrus.WithFields(logrus.Fields{
			"function": "handleSignal",
			"caller":   callerID,
			"kind":     kind,
		}).Warn("Dropping signal of unknown kind")
	}
}

func (m *Manager) handleOffer(callerID string, callerPK [32]byte, callID string) {
	m.mu.Lock()
	if _, busy := m.sessions[callerID]; busy {
		m.mu.Unlock()
		// Busy: decline without disturbing the active session.
		if declineErr := m.answer(callerID, callerPK, callID, false); declineErr != nil {
			logrus.WithFields(logrus.Fields{
				"function": "handleOffer",
				"caller":   callerID,
				"call_id":  callID,
				"error":    declineErr,
			}).Warn("Busy decline delivery failed")
		}
		return
	}

	session := newSessionWithID(callID, callerID, false)
	m.sessions[callerID] = session
	notifier := m.notifier
	incoming := m.incomingCallback
	m.mu.Unlock()

	m.setState(session, StateRinging)

	if notifier != nil {
		notifier.NotifyIncomingCall(callerID)
	}
	if incoming != nil {
		incoming(session)
	}
}

func (m *Manager) handleAnswer(callerID, callID string, accepted bool) {
	session, ok := m.ActiveSession(callerID)
	if !ok || !session.Outgoing() || session.ID() != callID {
		return
	}

	if !accepted {
		m.endSession(session)
		return
	}

	if err := session.transition(StateConnecting); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handleAnswer",
			"peer":     callerID,
			"error":    err,
		}).Warn("Ignoring answer in wrong state")
		return
	}
	m.notifyState(callerID, StateConnecting)
}

func (m *Manager) handleControl(callerID, callID string, control ControlType) {
	session, ok := m.ActiveSession(callerID)
	if !ok || session.ID() != callID {
		return
	}

	switch control {
	case ControlCancel, ControlHangup:
		m.endSession(session)
	}
}

func (m *Manager) answer(peerID string, peerPK [32]byte, callID string, accepted bool) error {
	payload, err := MarshalAnswer(&AnswerPacket{
		CallID:    callID,
		Accepted:  accepted,
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}
	return m.sendSealed(peerID, peerPK, payload)
}

func (m *Manager) sendControl(peerID, callID string, control ControlType) {
	peerPK, err := crypto.DecodePublicKey(peerID)
	if err != nil {
		return
	}

	payload, err := MarshalControl(&ControlPacket{
		CallID:    callID,
		Control:   control,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	if err := m.sendSealed(peerID, peerPK, payload); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "sendControl",
			"peer":     peerID,
			"error":    err,
		}).Warn("Control signal delivery failed")
	}
}

func (m *Manager) sendSealed(peerID string, peerPK [32]byte, payload []byte) error {
	envelope, err := SealSignal(payload, peerPK, m.keys.Private)
	if err != nil {
		return err
	}
	return m.signals.SendSignal(peerID, envelope)
}

func (m *Manager) setState(session *Session, state SessionState) {
	if err := session.transition(state); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "setState",
			"peer":     session.PeerID(),
			"error":    err,
		}).Error("Call state transition rejected")
		return
	}
	m.notifyState(session.PeerID(), state)
}

func (m *Manager) endSession(session *Session) {
	m.setState(session, StateEnded)
	m.dropSession(session)
}

func (m *Manager) failSession(session *Session) {
	m.setState(session, StateFailed)
	m.dropSession(session)
}

func (m *Manager) dropSession(session *Session) {
	session.closeStreams()

	m.mu.Lock()
	if m.sessions[session.PeerID()] == session {
		delete(m.sessions, session.PeerID())
	}
	m.mu.Unlock()
}

func (m *Manager) notifyState(peerID string, state SessionState) {
	m.mu.RLock()
	cb := m.stateCallback
	m.mu.RUnlock()

	if cb != nil {
		cb(peerID, state)
	}
}

// newSessionWithID creates an incoming session adopting the caller's call
// identifier so both sides track the same call.
func newSessionWithID(callID, peerID string, outgoing bool) *Session {
	s := newSession(peerID, outgoing)
	s.id = callID
	return s
}
