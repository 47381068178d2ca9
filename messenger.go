// Package messenger composes the end-to-end encrypted messaging core:
// identity key management, authenticated per-message encryption, the
// append-only message log, conversation filtering, and the call-initiation
// handshake. The transport, media capture, and notification surfaces are
// external collaborators injected through Options.
//
// Example:
//
//	opts := messenger.NewOptions()
//	opts.DataDir = "/var/lib/saxiib"
//	opts.Transport = myTransport
//
//	client, err := messenger.New(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg, err := client.SendText("hello", peerPublicKey)
package messenger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/saxiib/messenger/av"
	"github.com/saxiib/messenger/codec"
	"github.com/saxiib/messenger/config"
	"github.com/saxiib/messenger/crypto"
	"github.com/saxiib/messenger/identity"
	"github.com/saxiib/messenger/messaging"
	"github.com/saxiib/messenger/notify"
	"github.com/saxiib/messenger/storage"
)

// Transport is the full peer-delivery collaborator surface: message
// records out and in, plus opaque call-signaling payloads. The loopback
// endpoints in the transport package satisfy it.
type Transport interface {
	Send(msg messaging.Message) error
	OnMessage(handler func(messaging.Message))
	SendSignal(peerID string, payload []byte) error
	OnSignal(handler func(callerID string, payload []byte))
}

// Options configures a Client.
type Options struct {
	// DataDir is where the durable store lives. Ignored when Store is set.
	DataDir string
	// LogLevel is a logrus level name.
	LogLevel string

	// Store overrides the default BadgerDB store (used by tests and
	// embedders that manage persistence themselves).
	Store storage.Store
	// Transport is the peer-delivery collaborator. Without one, messages
	// are composed and persisted but never shipped, and calls are
	// disabled.
	Transport Transport
	// Media is the local media capability. Without one, calls are
	// disabled.
	Media av.Media
	// NotifySink receives notifications; nil falls back to the log.
	NotifySink notify.Sink
	// VisibilityFunc reports whether the consuming surface is focused.
	// Inbound messages notify only while it returns false.
	VisibilityFunc func() bool
}

// NewOptions returns Options populated from the default configuration.
func NewOptions() *Options {
	cfg := config.Default()
	return &Options{
		DataDir:  cfg.DataDir,
		LogLevel: cfg.LogLevel,
	}
}

// Client is the composed messaging core handed to an embedding UI.
type Client struct {
	store         storage.Store
	ownsStore     bool
	keys          *crypto.KeyPair
	messages      *messaging.Manager
	calls         *av.Manager
	notifications *notify.Service
}

// New builds a Client from options. Storage that cannot be opened is
// fatal; a failed identity load is not. The client then runs with
// identity absent and every messaging/call operation is a safe no-op, so
// a transient storage fault can never cause a silent key regeneration.
func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = NewOptions()
	}

	if level, err := logrus.ParseLevel(opts.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	store := opts.Store
	ownsStore := false
	if store == nil {
		var err error
		store, err = storage.OpenBadger(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		ownsStore = true
	}

	notifications := notify.NewService(opts.NotifySink)
	if err := notifications.Init(); err != nil {
		return nil, err
	}

	keys, err := identity.NewManager(store).LoadOrCreate()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "New",
			"error":    err,
		}).Error("Identity unavailable; running degraded")
		keys = nil
	}

	log, err := messaging.NewLog(store)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "New",
			"error":    err,
		}).Error("Message history unavailable; starting empty")
	}

	messages := messaging.NewManager(keys, log)
	messages.SetNotifier(notifications)
	if opts.VisibilityFunc != nil {
		messages.SetVisibilityFunc(opts.VisibilityFunc)
	}

	client := &Client{
		store:         store,
		ownsStore:     ownsStore,
		keys:          keys,
		messages:      messages,
		notifications: notifications,
	}

	if opts.Transport != nil {
		messages.SetTransport(opts.Transport)
		opts.Transport.OnMessage(func(msg messaging.Message) {
			if err := messages.Receive(msg); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":   "OnMessage",
					"message_id": msg.ID,
					"error":      err,
				}).Warn("Inbound record not accepted")
			}
		})

		if opts.Media != nil {
			calls, err := av.NewManager(keys, opts.Media, opts.Transport)
			if err != nil {
				return nil, fmt.Errorf("call manager: %w", err)
			}
			calls.SetNotifier(notifications)
			client.calls = calls
		}
	}

	return client, nil
}

// Ready reports whether an identity key pair is loaded. When false, every
// send/receive/call operation returns an absence error.
func (c *Client) Ready() bool {
	return c.keys != nil
}

// PublicKey returns the local identity in its peer-facing hex form, or
// the empty string when no identity is loaded.
func (c *Client) PublicKey() string {
	return c.messages.LocalID()
}

// SendText encrypts and sends a text message to the peer.
func (c *Client) SendText(content, peerID string) (*messaging.Message, error) {
	return c.messages.SendText(content, peerID)
}

// SendMedia frames raw media bytes as text, encrypts them, and sends them
// with the given type tag (image, video, or voice).
func (c *Client) SendMedia(data []byte, mediaType messaging.MessageType, peerID string) (*messaging.Message, error) {
	return c.messages.SendMedia(codec.Encode(data), mediaType, peerID)
}

// Conversation returns the display copies of the messages exchanged with
// the peer, in order.
func (c *Client) Conversation(peerID string) []messaging.Message {
	return c.messages.Conversation(peerID)
}

// Messaging exposes the orchestrator for embedders that need the full
// surface (receive hooks, visibility control).
func (c *Client) Messaging() *messaging.Manager {
	return c.messages
}

// Calls exposes the call manager, or nil when transport or media are not
// configured.
func (c *Client) Calls() *av.Manager {
	return c.calls
}

// Close shuts down notifications and releases the store if this client
// opened it.
func (c *Client) Close() error {
	c.notifications.Shutdown()
	if c.ownsStore {
		return c.store.Close()
	}
	return nil
}
