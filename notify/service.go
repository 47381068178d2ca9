// Package notify provides the notification collaborator boundary.
//
// The service replaces a lazily-constructed global with an explicit
// Init/Shutdown lifecycle and an injected handle: "call once" semantics
// without hidden global coupling. The core invokes it only when the
// consuming surface is not focused; permission state is the embedder's
// concern.
package notify

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotInitialized indicates the service was used before Init or
	// after Shutdown.
	ErrNotInitialized = errors.New("notification service not initialized")

	// ErrAlreadyInitialized indicates a second Init without a Shutdown.
	ErrAlreadyInitialized = errors.New("notification service already initialized")
)

// Sink delivers notifications to the platform surface (system tray,
// desktop notifications, a test double).
type Sink interface {
	NewMessage(senderID, preview string)
	IncomingCall(callerID string)
}

// Service wraps a Sink with lifecycle state. Notifications sent while the
// service is not initialized are dropped with a debug log rather than
// crashing the messaging path.
type Service struct {
	mu          sync.Mutex
	sink        Sink
	initialized bool
}

// NewService creates a service over the given sink. A nil sink falls back
// to structured-log delivery.
func NewService(sink Sink) *Service {
	if sink == nil {
		sink = logSink{}
	}
	return &Service{sink: sink}
}

// Init activates the service. Calling Init twice is an error.
func (s *Service) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.initialized = true
	return nil
}

// Shutdown deactivates the service. Safe to call more than once.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
}

// NotifyNewMessage reports a new inbound message.
func (s *Service) NotifyNewMessage(senderID, preview string) {
	s.mu.Lock()
	sink, ok := s.sink, s.initialized
	s.mu.Unlock()

	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "NotifyNewMessage",
			"sender":   senderID,
		}).Debug("Dropping notification: service not initialized")
		return
	}
	sink.NewMessage(senderID, preview)
}

// NotifyIncomingCall reports an incoming call.
func (s *Service) NotifyIncomingCall(callerID string) {
	s.mu.Lock()
	sink, ok := s.sink, s.initialized
	s.mu.Unlock()

	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "NotifyIncomingCall",
			"caller":   callerID,
		}).Debug("Dropping notification: service not initialized")
		return
	}
	sink.IncomingCall(callerID)
}

// logSink is the fallback sink writing notifications to the log.
type logSink struct{}

func (logSink) NewMessage(senderID, preview string) {
	logrus.WithFields(logrus.Fields{
		"sender":  senderID,
		"preview": preview,
	}).Info("New message")
}

func (logSink) IncomingCall(callerID string) {
	logrus.WithFields(logrus.Fields{
		"caller": callerID,
	}).Info("Incoming call")
}
