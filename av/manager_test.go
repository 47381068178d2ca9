package av

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saxiib/messenger/crypto"
	"github.com/saxiib/messenger/transport"
)

type fakeStream struct{ id string }

func (s fakeStream) ID() string   { return s.id }
func (s fakeStream) Close() error { return nil }

type fakeMedia struct {
	err      error
	acquired int
}

func (m *fakeMedia) AcquireLocalMedia() (Stream, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.acquired++
	return fakeStream{id: "local"}, nil
}

type fakeNotifier struct{ callers []string }

func (n *fakeNotifier) NotifyIncomingCall(callerID string) {
	n.callers = append(n.callers, callerID)
}

// callPair wires two managers over a loopback link.
type callPair struct {
	alice, bob     *Manager
	aliceID, bobID string
	aliceMedia     *fakeMedia
	bobMedia       *fakeMedia
}

func newCallPair(t *testing.T) *callPair {
	t.Helper()

	aliceKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bobKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	aliceID := crypto.EncodePublicKey(aliceKeys.Public)
	bobID := crypto.EncodePublicKey(bobKeys.Public)

	a, b := transport.NewLoopback()
	a.SetLocalID(aliceID)
	b.SetLocalID(bobID)

	aliceMedia := &fakeMedia{}
	bobMedia := &fakeMedia{}

	alice, err := NewManager(aliceKeys, aliceMedia, a)
	require.NoError(t, err)
	bob, err := NewManager(bobKeys, bobMedia, b)
	require.NoError(t, err)

	return &callPair{
		alice: alice, bob: bob,
		aliceID: aliceID, bobID: bobID,
		aliceMedia: aliceMedia, bobMedia: bobMedia,
	}
}

func TestCallHandshake(t *testing.T) {
	pair := newCallPair(t)

	notifier := &fakeNotifier{}
	pair.bob.SetNotifier(notifier)

	var incoming *Session
	pair.bob.OnIncomingCall(func(s *Session) { incoming = s })

	// Alice calls Bob.
	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)
	assert.Equal(t, StateRinging, outgoing.State())
	assert.NotNil(t, outgoing.LocalStream())

	// Bob's side rings with the same call ID and notifies.
	require.NotNil(t, incoming, "verified offer must ring")
	assert.Equal(t, outgoing.ID(), incoming.ID())
	assert.Equal(t, StateRinging, incoming.State())
	assert.Equal(t, []string{pair.aliceID}, notifier.callers)

	// Bob accepts; both sides move to connecting.
	accepted, err := pair.bob.Accept(pair.aliceID)
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, accepted.State())
	assert.Equal(t, StateConnecting, outgoing.State())

	// Transport reports the remote streams; both sides connect.
	require.NoError(t, pair.alice.HandleRemoteStream(pair.bobID, fakeStream{id: "bob"}))
	require.NoError(t, pair.bob.HandleRemoteStream(pair.aliceID, fakeStream{id: "alice"}))
	assert.Equal(t, StateConnected, outgoing.State())
	assert.Equal(t, StateConnected, incoming.State())

	// Alice hangs up; both sessions end and are dropped.
	require.NoError(t, pair.alice.End(pair.bobID))
	assert.Equal(t, StateEnded, outgoing.State())
	assert.Equal(t, StateEnded, incoming.State())

	_, active := pair.alice.ActiveSession(pair.bobID)
	assert.False(t, active)
	_, active = pair.bob.ActiveSession(pair.aliceID)
	assert.False(t, active)
}

func TestInitiateMediaDenied(t *testing.T) {
	pair := newCallPair(t)
	pair.aliceMedia.err = errors.New("camera in use")

	session, err := pair.alice.Initiate(pair.bobID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMediaAccess))
	assert.Nil(t, session, "no session may be left half-open")

	_, active := pair.alice.ActiveSession(pair.bobID)
	assert.False(t, active)
}

func TestAcceptMediaDeniedFailsSession(t *testing.T) {
	pair := newCallPair(t)

	var incoming *Session
	pair.bob.OnIncomingCall(func(s *Session) { incoming = s })

	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	pair.bobMedia.err = errors.New("microphone denied")

	failed, err := pair.bob.Accept(pair.aliceID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMediaAccess))
	assert.Equal(t, StateFailed, failed.State())
	assert.Same(t, incoming, failed)

	// Alice's side sees the decline and ends.
	assert.Equal(t, StateEnded, outgoing.State())
	_, active := pair.bob.ActiveSession(pair.aliceID)
	assert.False(t, active)
}

func TestCancelOnlyWhileRinging(t *testing.T) {
	pair := newCallPair(t)
	pair.bob.OnIncomingCall(func(*Session) {})

	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	_, err = pair.bob.Accept(pair.aliceID)
	require.NoError(t, err)
	require.Equal(t, StateConnecting, outgoing.State())

	// Too late to cancel once accepted.
	err = pair.alice.Cancel(pair.bobID)
	assert.True(t, errors.Is(err, ErrNotRinging))
}

func TestCancelWhileRinging(t *testing.T) {
	pair := newCallPair(t)

	var incoming *Session
	pair.bob.OnIncomingCall(func(s *Session) { incoming = s })

	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	require.NoError(t, pair.alice.Cancel(pair.bobID))
	assert.Equal(t, StateEnded, outgoing.State())
	assert.Equal(t, StateEnded, incoming.State())
}

func TestRejectEndsCall(t *testing.T) {
	pair := newCallPair(t)
	pair.bob.OnIncomingCall(func(*Session) {})

	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	require.NoError(t, pair.bob.Reject(pair.aliceID))
	assert.Equal(t, StateEnded, outgoing.State())
	assert.Equal(t, 0, pair.bobMedia.acquired, "reject must not touch media")
}

func TestSecondCallToSamePeerIsBusy(t *testing.T) {
	pair := newCallPair(t)
	pair.bob.OnIncomingCall(func(*Session) {})

	_, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	_, err = pair.alice.Initiate(pair.bobID)
	assert.True(t, errors.Is(err, ErrCallAlreadyActive))
}

func TestRejectEndsCallWhenDeclineUndeliverable(t *testing.T) {
	// A loopback endpoint whose far side never registered a signal
	// handler, so the decline cannot be delivered.
	a, _ := transport.NewLoopback()

	keys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	mgr, err := NewManager(keys, &fakeMedia{}, a)
	require.NoError(t, err)

	peerKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	peerID := crypto.EncodePublicKey(peerKeys.Public)

	ringing := newSessionWithID(uuid.NewString(), peerID, false)
	require.NoError(t, ringing.transition(StateRinging))
	mgr.mu.Lock()
	mgr.sessions[peerID] = ringing
	mgr.mu.Unlock()

	// The undeliverable decline is logged, not surfaced; the local session
	// still ends.
	require.NoError(t, mgr.Reject(peerID))
	assert.Equal(t, StateEnded, ringing.State())
	_, active := mgr.ActiveSession(peerID)
	assert.False(t, active)
}

func TestBusyCalleeDeclineEndsOutgoingCall(t *testing.T) {
	pair := newCallPair(t)

	// Bob is already on a call with Alice, so her fresh offer gets an
	// immediate decline. Over the loopback link that decline lands before
	// Initiate returns, and it must still end Alice's session.
	stale := newSessionWithID(uuid.NewString(), pair.aliceID, false)
	require.NoError(t, stale.transition(StateRinging))
	pair.bob.mu.Lock()
	pair.bob.sessions[pair.aliceID] = stale
	pair.bob.mu.Unlock()

	outgoing, err := pair.alice.Initiate(pair.bobID)
	require.NoError(t, err)

	assert.Equal(t, StateEnded, outgoing.State())
	_, active := pair.alice.ActiveSession(pair.bobID)
	assert.False(t, active)
}

func TestNoIdentityIsSafeNoOp(t *testing.T) {
	a, _ := transport.NewLoopback()
	mgr, err := NewManager(nil, &fakeMedia{}, a)
	require.NoError(t, err)

	peerKeys, _ := crypto.GenerateKeyPair()
	peerID := crypto.EncodePublicKey(peerKeys.Public)

	_, err = mgr.Initiate(peerID)
	assert.True(t, errors.Is(err, ErrIdentityMissing))

	assert.True(t, errors.Is(mgr.Cancel(peerID), ErrIdentityMissing))
	assert.True(t, errors.Is(mgr.End(peerID), ErrIdentityMissing))
}

func TestForgedOfferNeverRings(t *testing.T) {
	pair := newCallPair(t)

	rang := false
	pair.bob.OnIncomingCall(func(*Session) { rang = true })

	// An impostor seals an offer with their own key but claims Alice's
	// identity; authentication must fail silently.
	impostor, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	bobKeys := pair.bob.keys
	payload, err := MarshalOffer(&OfferPacket{CallID: "00000000-0000-0000-0000-000000000000"})
	require.NoError(t, err)
	envelope, err := SealSignal(payload, bobKeys.Public, impostor.Private)
	require.NoError(t, err)

	pair.bob.handleSignal(pair.aliceID, envelope)
	assert.False(t, rang)

	_, active := pair.bob.ActiveSession(pair.aliceID)
	assert.False(t, active)
}
